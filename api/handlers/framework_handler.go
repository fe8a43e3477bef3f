package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/misc-installer-go/internal/app"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

// FrameworkHandler exposes the registered frameworks
type FrameworkHandler struct {
	installMgr *app.InstallManager
	logger     *zap.Logger
}

// NewFrameworkHandler creates a new framework handler
func NewFrameworkHandler(installMgr *app.InstallManager, logger *zap.Logger) *FrameworkHandler {
	return &FrameworkHandler{
		installMgr: installMgr,
		logger:     logger,
	}
}

// ListFrameworks handles GET /api/v1/frameworks
func (h *FrameworkHandler) ListFrameworks(c *gin.Context) {
	frameworks, err := h.installMgr.ListFrameworks()
	if err != nil {
		h.logger.Error("Failed to list frameworks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, frameworks)
}

// GetFramework handles GET /api/v1/frameworks/:name
func (h *FrameworkHandler) GetFramework(c *gin.Context) {
	name := c.Param("name")

	frameworks, err := h.installMgr.ListFrameworks()
	if err != nil {
		h.logger.Error("Failed to list frameworks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, f := range frameworks {
		if f.Name == name {
			c.JSON(http.StatusOK, f)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "framework not found"})
}

// CheckVersion handles GET /api/v1/frameworks/:name/version
func (h *FrameworkHandler) CheckVersion(c *gin.Context) {
	info, err := h.installMgr.CheckVersion(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// RemoveFramework handles DELETE /api/v1/frameworks/:name
func (h *FrameworkHandler) RemoveFramework(c *gin.Context) {
	name := c.Param("name")

	if err := h.installMgr.RemoveFramework(c.Request.Context(), name); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": name + " removed"})
}

func (h *FrameworkHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownFramework), errors.Is(err, domain.ErrNotInstalled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrVersionUnsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMarkupNotFound):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Framework request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
