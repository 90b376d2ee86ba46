package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
)

// pendingScan is a scan response annotated with a still-pending note.
type pendingScan struct {
	*models.Scan
	Message string `json:"message"`
}

// ScanURL handles POST /api/scan/url. The workflow runs synchronously and
// may come back still pending when the poll budget ran out; that is a 200,
// not an error.
func (h *Handler) ScanURL(c *gin.Context) {
	var input struct {
		URL    string `json:"url"`
		UserID int    `json:"userId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.URL == "" || input.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "URL and userId are required"})
		return
	}

	// Detached context: if the caller drops mid-poll the workflow still
	// runs to completion and persists, since the row is the durable record.
	scan, stillPending, err := h.Resolver.ResolveURL(context.Background(), input.UserID, input.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	if stillPending {
		c.JSON(http.StatusOK, pendingScan{
			Scan:    scan,
			Message: "URL submitted for scanning, analysis still pending after polling",
		})
		return
	}
	c.JSON(http.StatusOK, scan)
}

// ScanFile handles POST /api/scan/file. The upload lands in a uniquely named
// temp file that is removed on every exit path.
func (h *Handler) ScanFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}

	userID, err := strconv.Atoi(c.PostForm("userId"))
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	if fileHeader.Size > h.Config.Server.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": fmt.Sprintf("File too large (max %dMB)", h.Config.Server.MaxUploadBytes>>20),
		})
		return
	}

	tempDir := h.Config.Server.TempDir
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	// Timestamp plus random suffix keeps concurrent uploads from colliding.
	tempName := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.New().String(), filepath.Ext(fileHeader.Filename))
	tempPath := filepath.Join(tempDir, tempName)

	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to store uploaded file"})
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			log.Printf("[scan] failed to remove temp upload %s: %v", tempPath, err)
		}
	}()

	scan, stillPending, err := h.Resolver.ResolveFile(context.Background(), userID, fileHeader.Filename, tempPath)
	if err != nil {
		respondError(c, err)
		return
	}
	if stillPending {
		c.JSON(http.StatusOK, pendingScan{
			Scan:    scan,
			Message: "File submitted for scanning, analysis still pending after polling",
		})
		return
	}
	c.JSON(http.StatusOK, scan)
}

// GetScan handles GET /api/scan/:id. Read-only: a pending scan is returned
// as-is, polling is never resumed here.
func (h *Handler) GetScan(c *gin.Context) {
	scan, err := h.Store.GetScan(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

// GetStats handles GET /api/stats?userId= for the dashboard: totals by scan
// type and verdict plus the five most recent scans.
func (h *Handler) GetStats(c *gin.Context) {
	userID, err := strconv.Atoi(c.Query("userId"))
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	scans, err := h.Store.ScansByUser(userID, 1000)
	if err != nil {
		respondError(c, err)
		return
	}

	var urlScans, fileScans, malicious, suspicious, clean, pending int
	for _, scan := range scans {
		switch scan.ScanType {
		case models.ScanTypeURL:
			urlScans++
		case models.ScanTypeFile:
			fileScans++
		}
		switch scan.Status {
		case models.StatusMalicious:
			malicious++
		case models.StatusSuspicious:
			suspicious++
		case models.StatusClean:
			clean++
		case models.StatusPending:
			pending++
		}
	}

	recent := scans
	if len(recent) > 5 {
		recent = recent[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"totalScans":      len(scans),
		"totalUrlScans":   urlScans,
		"totalFileScans":  fileScans,
		"maliciousScans":  malicious,
		"suspiciousScans": suspicious,
		"cleanScans":      clean,
		"pendingScans":    pending,
		"recentScans":     recent,
	})
}
