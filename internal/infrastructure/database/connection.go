package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

const (
	defaultMaxConns        = 25
	defaultMinConns        = 2
	defaultMaxConnLifetime = 30 * time.Minute

	healthCheckInterval = 10 * time.Second
	metricsInterval     = 30 * time.Second
)

// PoolRecorder receives the connection pool size.
type PoolRecorder interface {
	SetDBPoolSize(size int64)
}

// ConnectionPool wraps a pgx pool with periodic health checks and pool metrics.
type ConnectionPool struct {
	primary  *pgxpool.Pool
	logger   *zap.Logger
	recorder PoolRecorder

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu              sync.RWMutex
	lastHealthCheck time.Time
	healthy         bool
}

// NewConnectionPool connects, pings and starts background health checking.
func NewConnectionPool(ctx context.Context, cfg *config.DatabaseConfig, recorder PoolRecorder, logger *zap.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	p := &ConnectionPool{
		logger:   logger,
		recorder: recorder,
		stop:     make(chan struct{}),
		healthy:  true,
	}
	p.configurePgxPool(poolConfig, cfg)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p.primary, err = pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := p.primary.Ping(connectCtx); err != nil {
		p.primary.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p.wg.Add(2)
	go p.healthCheckRoutine()
	go p.metricsCollectionRoutine()

	logger.Info("database connection pool initialized",
		zap.Int32("max_connections", poolConfig.MaxConns),
		zap.Int32("min_connections", poolConfig.MinConns),
	)

	return p, nil
}

func (p *ConnectionPool) configurePgxPool(pc *pgxpool.Config, cfg *config.DatabaseConfig) {
	pc.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	pc.MinConns = defaultMinConns
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = int32(cfg.MaxIdleConns)
	}
	if pc.MinConns > pc.MaxConns {
		pc.MinConns = pc.MaxConns
	}
	pc.MaxConnLifetime = defaultMaxConnLifetime
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = 10 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	pc.ConnConfig.ConnectTimeout = 5 * time.Second
	pc.ConnConfig.RuntimeParams["application_name"] = "energy_plan_advisor"
	pc.ConnConfig.RuntimeParams["timezone"] = "UTC"
	pc.ConnConfig.RuntimeParams["statement_timeout"] = "30s"
	pc.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = "60s"

	pc.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		p.logger.Debug("establishing database connection",
			zap.String("host", cc.Host),
			zap.Uint16("port", cc.Port))
		return nil
	}
}

// Pool returns the underlying pgx pool.
func (p *ConnectionPool) Pool() *pgxpool.Pool {
	return p.primary
}

func (p *ConnectionPool) Ping(ctx context.Context) error {
	return p.primary.Ping(ctx)
}

// Healthy reports the result of the last background health check.
func (p *ConnectionPool) Healthy() (bool, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy, p.lastHealthCheck
}

// Transaction runs fn inside a transaction, committing on nil and rolling back otherwise.
func (p *ConnectionPool) Transaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.primary, pgx.TxOptions{}, fn)
}

func (p *ConnectionPool) healthCheckRoutine() {
	defer p.wg.Done()
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.performHealthCheck()
		case <-p.stop:
			return
		}
	}
}

func (p *ConnectionPool) performHealthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.primary.Ping(ctx)
	if err != nil {
		p.logger.Error("database health check failed", zap.Error(err))
	}

	p.mu.Lock()
	p.healthy = err == nil
	p.lastHealthCheck = time.Now()
	p.mu.Unlock()
}

func (p *ConnectionPool) metricsCollectionRoutine() {
	defer p.wg.Done()
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	p.collectMetrics()
	for {
		select {
		case <-ticker.C:
			p.collectMetrics()
		case <-p.stop:
			return
		}
	}
}

func (p *ConnectionPool) collectMetrics() {
	if p.recorder == nil {
		return
	}
	p.recorder.SetDBPoolSize(int64(p.primary.Stat().TotalConns()))
}

// Close stops background routines and closes all connections. Safe to call twice.
func (p *ConnectionPool) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.primary.Close()
		p.logger.Info("database connection pool closed")
	})
}
