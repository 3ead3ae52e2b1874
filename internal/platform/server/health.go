package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// EmployeeServiceName はヘルスチェックで報告するサービス名です。
const EmployeeServiceName = "employee.EmployeeService"

// Pinger は疎通確認可能な依存先です。
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter はサービス状態の更新先です。*health.Server が満たします。
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// HealthReporter はデータベースへの定期 ping 結果をヘルス状態に反映します。
type HealthReporter struct {
	pinger   Pinger
	status   StatusSetter
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHealthReporter は HealthReporter を生成します。
func NewHealthReporter(pinger Pinger, status StatusSetter, interval time.Duration, log *zap.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = zap.L()
	}
	return &HealthReporter{
		pinger:   pinger,
		status:   status,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   log.Named("health"),
	}
}

// Run は ctx がキャンセルされるまで interval ごとに状態を更新します。
func (r *HealthReporter) Run(ctx context.Context) error {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}

// Check は 1 回 ping を行い、結果を全サービスに反映します。
func (r *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		r.logger.Warn("database ping failed", zap.Error(err))
	}

	r.status.SetServingStatus("", status)
	r.status.SetServingStatus(EmployeeServiceName, status)
	return status
}
