package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"go.uber.org/zap"
)

const defaultPingTimeout = 2 * time.Second

// Pinger は疎通確認可能な依存先です。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler はデータベース疎通を含む死活確認を返します。
type HealthHandler struct {
	pinger  Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler は HealthHandler を生成します。
func NewHealthHandler(pinger Pinger, log *zap.Logger) *HealthHandler {
	if log == nil {
		log = zap.L()
	}
	return &HealthHandler{pinger: pinger, timeout: defaultPingTimeout, logger: log.Named("health")}
}

// Check は GET /healthz を処理します。
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Warn("database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
