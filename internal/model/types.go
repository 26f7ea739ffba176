package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// Clock returns the current time. Injected wherever output depends on "now".
type Clock func() time.Time

// isoLayout matches the millisecond ISO-8601 form the dashboard expects.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t in UTC with millisecond precision. Zero yields "".
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}

// Stats is the singleton aggregate over the current log entry sequence.
type Stats struct {
	TotalRecords       int `json:"totalRecords"`
	ActiveConnections  int `json:"activeConnections"`
	FlaggedNumbers     int `json:"flaggedNumbers"`
	InvestigationCases int `json:"investigationCases"`
	SuspiciousPatterns int `json:"suspiciousPatterns"`
	NetworkNodes       int `json:"networkNodes"`
	DataProcessed      int `json:"dataProcessed"` // MB
	RiskScore          int `json:"riskScore"`
}

// UploadedFile is the metadata kept for one user upload.
type UploadedFile struct {
	Filename         string    `json:"filename"`
	RecordsProcessed int       `json:"recordsProcessed"`
	UploadTime       time.Time `json:"-"`
	Size             int64     `json:"size"`
}

// UploadTimeISO is the JSON form of UploadTime.
func (f UploadedFile) UploadTimeISO() string {
	return FormatISO(f.UploadTime)
}

// Activity levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// ActivityEntry is one audit-trail line for an ingestion or delete event.
type ActivityEntry struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"-"`
	Event  string    `json:"event"`
	Level  string    `json:"level"`
	Source string    `json:"source"`
}

// TimelineEvent is one dashboard timeline item derived from a suspicious entry.
type TimelineEvent struct {
	Time     string `json:"time"`
	Event    string `json:"event"`
	Type     string `json:"type"`
	Score    int    `json:"score"`
	SourceIP string `json:"sourceIp,omitempty"`
	EntryID  string `json:"entryId"`
}

// TimelineBucket is one synthetic fixed-interval dashboard bucket.
type TimelineBucket struct {
	Time       string `json:"time"`
	Events     int    `json:"events"`
	Suspicious int    `json:"suspicious"`
}

// Timeline is either a list of events or a list of synthetic buckets.
// Consumers must accept both shapes.
type Timeline struct {
	Events  []TimelineEvent
	Buckets []TimelineBucket
}

// Value returns whichever shape is populated, or an empty list.
func (t Timeline) Value() any {
	if t.Buckets != nil {
		return t.Buckets
	}
	if t.Events != nil {
		return t.Events
	}
	return []TimelineEvent{}
}

// Empty reports whether neither shape holds items.
func (t Timeline) Empty() bool {
	return len(t.Events) == 0 && len(t.Buckets) == 0
}

// MarshalJSON renders UploadTime as an ISO string.
func (f UploadedFile) MarshalJSON() ([]byte, error) {
	type alias UploadedFile
	return json.Marshal(struct {
		alias
		UploadTime string `json:"uploadTime"`
	}{alias(f), f.UploadTimeISO()})
}

// MarshalJSON renders Time as an ISO string.
func (a ActivityEntry) MarshalJSON() ([]byte, error) {
	type alias ActivityEntry
	return json.Marshal(struct {
		alias
		Time string `json:"time"`
	}{alias(a), FormatISO(a.Time)})
}
