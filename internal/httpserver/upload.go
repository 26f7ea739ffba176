package httpserver

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/nexumobscura/nexum/internal/ingest"
	"github.com/nexumobscura/nexum/internal/model"
)

const uploadField = "logFile"

// multipartSlack covers form boundaries and headers around the file part.
const multipartSlack = 1 << 20

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize+multipartSlack)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": ingest.ErrFileTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	name := filepath.Base(fh.Filename)
	if err := ingest.ValidateUpload(name, fh.Header.Get("Content-Type"), fh.Size, s.cfg.MaxUploadSize); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	dst := filepath.Join(s.cfg.UploadDir, uuid.NewString()+".csv")
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		zlog.Error().Err(err).Str("file", name).Msg("saving upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving file"})
		return
	}

	res, err := s.svc.Upload(dst, name, fh.Size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Error processing CSV file: " + err.Error(),
			"processed": res.Processed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "File processed successfully",
		"processed":  res.Processed,
		"errors":     res.Errors,
		"total":      res.Processed + res.Errors,
		"filename":   res.Filename,
		"fileSize":   res.FileSize,
		"sampleData": res.Sample,
		"analysis":   res.Analysis,
	})
}

func (s *Server) handleUploadStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"fieldName":        uploadField,
		"maxFileSize":      s.cfg.MaxUploadSize,
		"maxFileSizeMB":    s.cfg.MaxUploadSize >> 20,
		"allowedTypes":     []string{".csv", "text/csv"},
		"maxStoredEntries": s.cfg.MaxUploadEntries,
		"storedEntries":    s.store.Len(),
		"timestamp":        model.FormatISO(s.clock()),
	})
}
