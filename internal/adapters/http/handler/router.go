package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions はルーター構築時の設定です。
type RouterOptions struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter は社員 API と死活確認を登録した gin.Engine を返します。
func NewRouter(employees *EmployeeHandler, health *HealthHandler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(opts.Logger), Recovery(opts.Logger), cors.New(corsConfig(opts.AllowedOrigins)))

	if health != nil {
		r.GET("/healthz", health.Check)
	}

	api := r.Group("/api")
	employees.Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
