package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/misc-installer-go/internal/app"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/pkg/logger"
	"go.uber.org/zap"
)

// InstallHandler handles install job HTTP requests
type InstallHandler struct {
	queueMgr   *app.QueueManager
	installMgr *app.InstallManager
	logReader  *logger.LogReader
	logger     *zap.Logger
}

// NewInstallHandler creates a new install handler
func NewInstallHandler(queueMgr *app.QueueManager, installMgr *app.InstallManager, logsDir string, log *zap.Logger) *InstallHandler {
	return &InstallHandler{
		queueMgr:   queueMgr,
		installMgr: installMgr,
		logReader:  logger.NewLogReader(logsDir),
		logger:     log,
	}
}

// AddInstallRequest represents a request to install a framework
type AddInstallRequest struct {
	Framework string `json:"framework" binding:"required"`
	Priority  int    `json:"priority,omitempty"`
}

// AddInstall handles POST /api/v1/installs
func (h *InstallHandler) AddInstall(c *gin.Context) {
	var req AddInstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	install, err := h.queueMgr.AddInstall(req.Framework, req.Priority)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownFramework) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to add install", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, install)
}

// GetInstall handles GET /api/v1/installs/:id
func (h *InstallHandler) GetInstall(c *gin.Context) {
	install, err := h.queueMgr.GetInstall(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "install not found"})
		return
	}

	c.JSON(http.StatusOK, install)
}

// ListInstalls handles GET /api/v1/installs
func (h *InstallHandler) ListInstalls(c *gin.Context) {
	filters := make(map[string]interface{})

	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if framework := c.Query("framework"); framework != "" {
		filters["framework"] = framework
	}

	installs, err := h.queueMgr.ListInstalls(filters)
	if err != nil {
		h.logger.Error("Failed to list installs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, installs)
}

// GetStats handles GET /api/v1/installs/stats
func (h *InstallHandler) GetStats(c *gin.Context) {
	stats, err := h.queueMgr.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelInstall handles POST /api/v1/installs/:id/cancel
func (h *InstallHandler) CancelInstall(c *gin.Context) {
	id := c.Param("id")

	if err := h.installMgr.CancelInstall(id); err != nil {
		h.respondError(c, "Failed to cancel install", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "install cancelled"})
}

// RetryInstall handles POST /api/v1/installs/:id/retry
func (h *InstallHandler) RetryInstall(c *gin.Context) {
	id := c.Param("id")

	if err := h.installMgr.RetryInstall(id); err != nil {
		h.respondError(c, "Failed to retry install", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "install queued for retry"})
}

// DeleteInstall handles DELETE /api/v1/installs/:id
func (h *InstallHandler) DeleteInstall(c *gin.Context) {
	id := c.Param("id")

	if err := h.queueMgr.DeleteInstall(id); err != nil {
		h.respondError(c, "Failed to delete install", id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "install deleted"})
}

// GetInstallLog handles GET /api/v1/installs/:id/log
func (h *InstallHandler) GetInstallLog(c *gin.Context) {
	install, err := h.queueMgr.GetInstall(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "install not found"})
		return
	}

	date := install.CreatedAt
	if install.StartedAt != nil {
		date = *install.StartedAt
	}
	section, err := h.logReader.ReadInstallLog(date, install.ID)
	if err != nil && install.StartedAt != nil && !sameDay(date, time.Now()) {
		// Jobs running across midnight keep writing to the file they opened
		section, err = h.logReader.ReadInstallLog(time.Now(), install.ID)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no process log for this install"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.GetHeader("Accept") == "application/json" {
		c.JSON(http.StatusOK, gin.H{"id": install.ID, "framework": install.Framework, "log": section})
		return
	}
	c.String(http.StatusOK, section)
}

func sameDay(a, b time.Time) bool {
	return a.Format("20060102") == b.Format("20060102")
}

func (h *InstallHandler) respondError(c *gin.Context, msg, id string, err error) {
	if errors.Is(err, domain.ErrInstallNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Warn(msg, zap.String("id", id), zap.Error(err))
	c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
}
