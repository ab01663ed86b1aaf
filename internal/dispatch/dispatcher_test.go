package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
)

// --- helpers ---

type fakePublisher struct {
	mu    sync.Mutex
	tasks []*domain.TaskMessage
	err   error
}

func (p *fakePublisher) PublishTask(_ context.Context, msg *domain.TaskMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, msg)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func taskConfig(n int) domain.TaskConfig {
	cfg := domain.TaskConfig{Instances: make([]domain.InstanceConfig, n)}
	for i := range cfg.Instances {
		cfg.Instances[i] = domain.InstanceConfig{"account": fmt.Sprintf("acc%d", i)}
	}
	return cfg
}

func newTestDispatcher(pub Publisher) *Dispatcher {
	registry := bots.NewRegistry()
	_ = registry.Register(bots.BotTypeFakeMessage, bots.FakeMessageBot())

	return New(Config{
		Registry:  registry,
		Publisher: pub,
		Priority:  5,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// --- Validate Tests ---

func TestValidate_Mismatch(t *testing.T) {
	const instances = 3

	for _, n := range []int{instances - 1, instances + 1, 0} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			err := Validate(taskConfig(n), instances)
			if !errors.Is(err, ErrConfigMismatch) {
				t.Fatalf("expected ErrConfigMismatch, got %v", err)
			}

			var mismatch *ConfigMismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("expected *ConfigMismatchError, got %T", err)
			}
			if mismatch.Expected != instances || mismatch.Actual != n {
				t.Errorf("unexpected details: %+v", mismatch)
			}
		})
	}
}

func TestValidate_Equal(t *testing.T) {
	if err := Validate(taskConfig(3), 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_NonPositiveInstances(t *testing.T) {
	if err := Validate(taskConfig(0), 0); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

// --- Submit Tests ---

func TestSubmit_Queued(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	ack, err := d.Submit(context.Background(), &domain.TaskRequest{
		BotType:   bots.BotTypeFakeMessage,
		Instances: 2,
		Config:    taskConfig(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ack.Status != StatusQueued || ack.Instances != 2 || ack.BotType != bots.BotTypeFakeMessage {
		t.Errorf("unexpected ack: %+v", ack)
	}
	if ack.Message != QueuedMessage {
		t.Errorf("unexpected message: %q", ack.Message)
	}

	if pub.count() != 1 {
		t.Fatalf("expected 1 published task, got %d", pub.count())
	}
	msg := pub.tasks[0]
	if msg.RetryCount != 0 || msg.Priority != 5 || msg.MessageID == "" || msg.MessageID != ack.MessageID {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.IsUpload() {
		t.Error("bot task routed as upload")
	}
}

func TestSubmit_ConfigMismatchNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	_, err := d.Submit(context.Background(), &domain.TaskRequest{
		BotType:   bots.BotTypeFakeMessage,
		Instances: 3,
		Config:    taskConfig(2),
	})
	if !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("expected ErrConfigMismatch, got %v", err)
	}
	if pub.count() != 0 {
		t.Errorf("expected nothing published, got %d", pub.count())
	}
}

func TestSubmit_UnsupportedBotType(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	_, err := d.Submit(context.Background(), &domain.TaskRequest{
		BotType:   "unknown_bot",
		Instances: 1,
		Config:    taskConfig(1),
	})

	var unsupported *bots.UnsupportedBotTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedBotTypeError, got %v", err)
	}
	if len(unsupported.Supported) != 1 || unsupported.Supported[0] != bots.BotTypeFakeMessage {
		t.Errorf("unexpected supported list: %v", unsupported.Supported)
	}
	if pub.count() != 0 {
		t.Errorf("expected nothing published, got %d", pub.count())
	}
}

func TestSubmit_InvalidRequest(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	tests := []struct {
		name string
		req  domain.TaskRequest
	}{
		{"empty bot type", domain.TaskRequest{Instances: 1, Config: taskConfig(1)}},
		{"zero instances", domain.TaskRequest{BotType: bots.BotTypeFakeMessage}},
		{"priority too high", domain.TaskRequest{BotType: bots.BotTypeFakeMessage, Instances: 1, Config: taskConfig(1), Priority: 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Submit(context.Background(), &tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	if pub.count() != 0 {
		t.Errorf("expected nothing published, got %d", pub.count())
	}
}

func TestSubmit_RequestPriorityWins(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	_, err := d.Submit(context.Background(), &domain.TaskRequest{
		BotType:   bots.BotTypeFakeMessage,
		Instances: 1,
		Config:    taskConfig(1),
		Priority:  9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.tasks[0].Priority != 9 {
		t.Errorf("expected priority 9, got %d", pub.tasks[0].Priority)
	}
}

func TestSubmit_PublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	d := newTestDispatcher(pub)

	_, err := d.Submit(context.Background(), &domain.TaskRequest{
		BotType:   bots.BotTypeFakeMessage,
		Instances: 1,
		Config:    taskConfig(1),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrConfigMismatch) || errors.Is(err, ErrInvalidRequest) {
		t.Errorf("publish failure classified as validation error: %v", err)
	}
}

// --- SubmitUpload Tests ---

func TestSubmitUpload(t *testing.T) {
	pub := &fakePublisher{}
	d := newTestDispatcher(pub)

	ack, err := d.SubmitUpload(context.Background(), &domain.UploadRequest{
		Instances: 2,
		Config:    taskConfig(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack.Status != StatusQueued || ack.Instances != 2 {
		t.Errorf("unexpected ack: %+v", ack)
	}
	if pub.count() != 1 || !pub.tasks[0].IsUpload() {
		t.Errorf("expected one upload task, got %+v", pub.tasks)
	}

	_, err = d.SubmitUpload(context.Background(), &domain.UploadRequest{Instances: 2, Config: taskConfig(1)})
	if !errors.Is(err, ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}
}
