package logger

import (
	"context"
	"fmt"

	"github.com/ogurasousui/employee-provisioning/internal/platform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey struct{}

// New は設定に従って zap.Logger を構築します。
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: parse level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l, nil
}

// WithFields はリクエストスコープのフィールドをコンテキストに追加します。
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing, _ := ctx.Value(contextKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, contextKey{}, merged)
}

// FromContext は component にコンテキストのリクエストフィールドを付与して返します。
// component の名前はそのまま維持されます。nil の場合は何も出力しないロガーを基にします。
func FromContext(ctx context.Context, component *zap.Logger) *zap.Logger {
	if component == nil {
		component = zap.NewNop()
	}
	if ctx == nil {
		return component
	}
	fields, _ := ctx.Value(contextKey{}).([]zap.Field)
	if len(fields) == 0 {
		return component
	}
	return component.With(fields...)
}
