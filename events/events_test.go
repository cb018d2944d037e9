package events

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"quizbank-backend/logger"
)

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewLogPublisher(&logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	err := p.Publish(context.Background(), ImportEvent{
		Type:      TypeBatchWritten,
		SessionID: "abc",
		Data:      map[string]interface{}{"batch": 1, "written": 150},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	entries := logs.FilterMessage("import event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["type"] != TypeBatchWritten {
		t.Fatalf("unexpected fields %v", entries[0].ContextMap())
	}
}

func TestNewRedisPublisherValidation(t *testing.T) {
	if _, err := NewRedisPublisher(nil, "localhost:6379", ""); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewRedisPublisher(logger.NewNop(), " ", ""); err == nil {
		t.Fatalf("expected error without address")
	}
}
