package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/query"
	"github.com/nexumobscura/nexum/internal/report"
	"github.com/nexumobscura/nexum/internal/store"
	"github.com/nexumobscura/nexum/internal/views"
)

const (
	dashboardEntries = 100
)

func (s *Server) now() string { return model.FormatISO(s.clock()) }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "Nexum Obscura API is running",
		"timestamp": s.now(),
		"uptime":    s.clock().Sub(s.startTime).Seconds(),
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	n := s.store.Len()
	timeline := s.store.Timeline()
	if timeline.Empty() && n > 0 {
		timeline = store.SyntheticTimeline(s.svc.Random())
	}
	c.JSON(http.StatusOK, gin.H{
		"hasData":          n > 0,
		"uploadedFiles":    s.store.Files(),
		"sharedDataLoaded": s.store.SharedLoaded(),
		"overview":         s.store.Stats(),
		"recentActivity":   s.store.Activity(store.DashboardActivity),
		"timeline":         timeline.Value(),
		"logEntries":       s.store.Recent(dashboardEntries),
		"totalLogEntries":  n,
	})
}

func (s *Server) handleLogs(c *gin.Context) {
	p := query.Params{
		Page:       query.ParseInt(c.Query("page"), 1),
		Limit:      query.ParseInt(c.Query("limit"), model.DefaultPageSize),
		Search:     c.Query("search"),
		SourceFile: c.Query("sourceFile"),
		DateFrom:   c.Query("dateFrom"),
		DateTo:     c.Query("dateTo"),
		RiskLevel:  c.Query("riskLevel"),
		Protocol:   c.Query("protocol"),
		Action:     c.Query("action"),
	}
	page := query.Run(s.store.Snapshot(), p)
	c.JSON(http.StatusOK, gin.H{
		"logs":       page.Entries,
		"pagination": page.Pagination,
		"filters": gin.H{
			"search":     p.Search,
			"sourceFile": p.SourceFile,
			"dateFrom":   p.DateFrom,
			"dateTo":     p.DateTo,
			"riskLevel":  p.RiskLevel,
			"protocol":   p.Protocol,
			"action":     p.Action,
		},
		"timestamp": s.now(),
	})
}

func (s *Server) handleFiles(c *gin.Context) {
	files := s.store.Files()
	c.JSON(http.StatusOK, gin.H{"files": files, "totalFiles": len(files)})
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	name := c.Param("filename")
	removed, err := s.svc.DeleteFile(name)
	if errors.Is(err, store.ErrFileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          fmt.Sprintf("File %s deleted successfully", name),
		"removedRecords":   removed,
		"remainingRecords": s.store.Len(),
	})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	gen := s.store.Generation()
	a := s.cache.get("analysis", gen, func() any {
		return views.BuildAnalysis(s.store.Snapshot())
	})
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleNetwork(c *gin.Context) {
	p := views.NetworkParams{
		MinConnections:     query.ParseInt(c.Query("minConnections"), views.DefaultMinConnections),
		ShowOnlySuspicious: c.Query("showOnlySuspicious") == "true",
		Limit:              query.ParseInt(c.Query("limit"), views.DefaultGraphLimit),
	}
	key := fmt.Sprintf("network|%d|%t|%d", p.MinConnections, p.ShowOnlySuspicious, p.Limit)
	graph := s.cache.get(key, s.store.Generation(), func() any {
		return views.BuildNetwork(s.store.Snapshot(), p, s.tables)
	})
	c.JSON(http.StatusOK, graph)
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts := views.BuildAlerts(s.store.Snapshot(), s.clock())
	c.JSON(http.StatusOK, gin.H{
		"alerts":    alerts,
		"total":     len(alerts),
		"timestamp": s.now(),
	})
}

func (s *Server) handleReports(c *gin.Context) {
	req := report.Request{
		Type:      c.DefaultQuery("type", "summary"),
		Format:    c.DefaultQuery("format", "json"),
		DateRange: c.DefaultQuery("dateRange", "all"),
	}
	r, err := report.Build(req, s.store.Snapshot(), s.store.Stats(), s.clock())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleExport(c *gin.Context) {
	req := report.ExportRequest{
		Type:   c.Param("type"),
		Format: c.DefaultQuery("format", "csv"),
		Filter: c.Query("filter"),
	}
	d, err := report.Export(req, s.store.Snapshot(), s.store.Stats(), s.clock())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, d.Filename))
	c.Data(http.StatusOK, d.ContentType, d.Body)
}

func (s *Server) handleTrafficFlow(c *gin.Context) {
	timeRange := views.NormalizeTimeRange(c.Query("timeRange"))
	granularity := strings.ToLower(c.DefaultQuery("granularity", "hour"))
	now := s.clock()
	// Buckets are anchored to the current hour, so the hour is part of the key.
	key := fmt.Sprintf("traffic|%s|%s|%s", timeRange, granularity, now.UTC().Format("2006010215"))
	flow := s.cache.get(key, s.store.Generation(), func() any {
		return views.BuildTrafficFlow(s.store.Snapshot(), timeRange, granularity, now)
	})
	c.JSON(http.StatusOK, flow)
}

func (s *Server) handleProtocolAnalysis(c *gin.Context) {
	d := s.cache.get("protocol", s.store.Generation(), func() any {
		return views.BuildDistribution(s.store.Snapshot(), s.tables)
	})
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleGeographic(c *gin.Context) {
	c.JSON(http.StatusOK, views.BuildGeographic(s.store.Snapshot(), s.tables, s.svc.Random(), s.clock()))
}

func (s *Server) handleArchive(c *gin.Context) {
	if s.cfg.Archive == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	sum, err := s.cfg.Archive.Summary(c.Request.Context())
	if err != nil {
		zlog.Error().Err(err).Msg("archive summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "archive": sum})
}
