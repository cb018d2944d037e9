package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"quizbank-backend/logger"
)

// Import event types
const (
	TypeSessionStarted = "import.session_started"
	TypeBatchWritten   = "import.batch_written"
	TypeBatchFailed    = "import.batch_failed"
	TypeCommitFinished = "import.commit_finished"
	TypeSessionClosed  = "import.session_closed"
)

// ImportEvent is published as JSON for dashboards following an import
type ImportEvent struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id"`
	Filename  string                 `json:"filename,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	At        time.Time              `json:"at"`
}

// Publisher delivers import events. Publishing is best effort; callers log
// failures and carry on
type Publisher interface {
	Publish(ctx context.Context, ev ImportEvent) error
	Close() error
}

type redisPublisher struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisPublisher connects to addr and publishes on channel
func NewRedisPublisher(log *logger.Logger, addr, channel string) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = "quizbank.imports"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisPublisher{
		log:     log.With("service", "RedisImportEvents"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, ev ImportEvent) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

func (p *redisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

type logPublisher struct {
	log *logger.Logger
}

// NewLogPublisher writes events to the log. Used when REDIS_ADDR is unset
func NewLogPublisher(log *logger.Logger) Publisher {
	return &logPublisher{log: log.With("service", "ImportEvents")}
}

func (p *logPublisher) Publish(ctx context.Context, ev ImportEvent) error {
	p.log.Debug("import event", "type", ev.Type, "session", ev.SessionID, "data", ev.Data)
	return nil
}

func (p *logPublisher) Close() error { return nil }
