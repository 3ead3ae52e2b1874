package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ogurasousui/employee-provisioning/internal/platform/logger"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger はリクエスト ID を採番し、request_id をログフィールドとしてコンテキストへ格納します。
// 処理完了後にアクセスログを 1 行出力します。
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	base = base.Named("http")

	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(requestIDHeader, rid)

		ctx := logger.WithFields(c.Request.Context(), zap.String("request_id", rid))
		c.Request = c.Request.WithContext(ctx)
		reqLogger := logger.FromContext(ctx, base)

		c.Next()

		reqLogger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery は panic を 500 応答に変換します。
func Recovery(base *zap.Logger) gin.HandlerFunc {
	if base == nil {
		base = zap.L()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context(), base).Error("panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: msgInternalError, Error: codeInternalError})
	})
}
