package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/configuration"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/normalize"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/services"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/storage"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/workflow"
)

// Handler carries the injected collaborators for every route. Mailer may be
// nil when SMTP is not configured.
type Handler struct {
	Store    storage.Store
	Resolver *workflow.Resolver
	Mailer   *services.Mailer
	Config   *configuration.Config
}

func New(store storage.Store, resolver *workflow.Resolver, mailer *services.Mailer, cfg *configuration.Config) *Handler {
	return &Handler{
		Store:    store,
		Resolver: resolver,
		Mailer:   mailer,
		Config:   cfg,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// respondError maps workflow and storage failures onto the HTTP surface.
// Validation problems are 400s, missing records 404s, and upstream failures
// mirror the reputation service's status. Nothing internal leaks into the
// body.
func respondError(c *gin.Context, err error) {
	var upstream *virustotal.UpstreamError

	switch {
	case errors.Is(err, normalize.ErrInvalidResource),
		errors.Is(err, normalize.ErrResourceTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Scan not found"})
	case errors.As(err, &upstream):
		status := upstream.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"message": upstream.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
