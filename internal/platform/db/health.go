package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthStatus reports database reachability for the /health endpoint.
type HealthStatus struct {
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// CheckHealth pings the database with a short timeout.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := pool.Ping(ctx)
	status := HealthStatus{OK: err == nil, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}
