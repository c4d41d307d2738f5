package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"transcribe-gateway/internal/infra"
)

// Store owns the MongoDB client. The gateway runs no queries; it only needs
// to know whether the deployment is reachable.
type Store struct {
	client    *mongo.Client
	connected atomic.Bool
	ready     atomic.Bool
	logger    *slog.Logger

	mu      sync.Mutex
	servers map[string]bool // server address -> last heartbeat reached a data-bearing node
}

func newStore(logger *slog.Logger) *Store {
	return &Store{logger: logger, servers: make(map[string]bool)}
}

// Connect dials uri and pings the primary with backoff. It fails only when
// every attempt fails, which callers treat as fatal.
func Connect(ctx context.Context, uri string, timeout time.Duration, logger *slog.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongodb URI is required")
	}

	s := newStore(logger)

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetServerMonitor(s.monitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating mongodb client: %w", err)
	}

	retry := infra.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("mongodb ping failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	}

	err = infra.WithRetry(ctx, retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s.client = client
	s.connected.Store(true)
	s.ready.Store(true)
	logger.Info("mongodb connected")

	return s, nil
}

// Connected reports the last known connection state. It never blocks.
func (s *Store) Connected() bool {
	if s == nil {
		return false
	}
	return s.connected.Load()
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	s.ready.Store(false)
	s.mu.Lock()
	clear(s.servers)
	s.connected.Store(false)
	s.mu.Unlock()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting mongodb: %w", err)
	}
	return nil
}

func (s *Store) monitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatSucceeded: func(e *event.ServerHeartbeatSucceededEvent) {
			if s.observe(e.ConnectionID, e.Reply.DataBearing()) && s.ready.Load() {
				s.logger.Info("mongodb connection restored")
			}
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			if s.observe(e.ConnectionID, false) && s.ready.Load() {
				s.logger.Warn("mongodb connection lost", "server", serverAddress(e.ConnectionID), "error", e.Failure)
			}
		},
	}
}

// observe records one server's heartbeat and recomputes the deployment-wide
// flag: connected while at least one data-bearing server answers. Arbiters
// and ghosts answer heartbeats but do not count. It reports whether the flag
// changed.
func (s *Store) observe(connID string, reachable bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.servers[serverAddress(connID)] = reachable

	up := false
	for _, ok := range s.servers {
		if ok {
			up = true
			break
		}
	}
	return s.connected.Swap(up) != up
}

// serverAddress strips the per-connection counter the driver appends to the
// monitoring connection id ("host:27017[-3]"), so reconnects to the same
// server share one entry.
func serverAddress(connID string) string {
	if i := strings.LastIndex(connID, "[-"); i >= 0 {
		return connID[:i]
	}
	return connID
}
