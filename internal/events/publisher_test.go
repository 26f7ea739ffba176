package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexumobscura/nexum/internal/model"
)

type fakeConn struct {
	mu      sync.Mutex
	msgs    [][]byte
	subject string
	fail    bool
	closed  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("boom")
	}
	f.subject = subject
	f.msgs = append(f.msgs, data)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error { return nil }

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func TestPublisherSendsActivity(t *testing.T) {
	conn := &fakeConn{}
	p := New(context.Background(), conn, "nexum.activity", nil)
	p.Publish(model.ActivityEntry{
		ID:     "1",
		Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Event:  "Loaded 5 records",
		Level:  model.LevelSuccess,
		Source: "a.csv",
	})
	p.Close()

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "nexum.activity", conn.subject)
	assert.True(t, conn.closed)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(conn.msgs[0], &ev))
	assert.Equal(t, "activity", ev["type"])
	assert.Equal(t, "2024-01-01T00:00:00.000Z", ev["timestamp"])
	act := ev["activity"].(map[string]any)
	assert.Equal(t, "Loaded 5 records", act["event"])
	assert.Equal(t, "a.csv", act["source"])
}

func TestPublisherReportsErrors(t *testing.T) {
	conn := &fakeConn{fail: true}
	var mu sync.Mutex
	failures := 0
	p := New(context.Background(), conn, "s", func() {
		mu.Lock()
		failures++
		mu.Unlock()
	})
	p.Publish(model.ActivityEntry{ID: "1"})
	p.Publish(model.ActivityEntry{ID: "2"})
	p.Close()

	assert.Equal(t, 2, failures)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(context.Background(), &fakeConn{}, "s", nil)
	p.Close()
	p.Close()
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	conn := &fakeConn{}
	p := New(context.Background(), conn, "s", nil)
	p.Close()
	p.Publish(model.ActivityEntry{ID: "late"})
	assert.Empty(t, conn.msgs)
}
