package repo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/darkbot/internal/domain"
)

func TestNewPool_EmptyDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz")
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestMarshalPayload(t *testing.T) {
	b, err := marshalPayload(nil)
	if err != nil || b != nil {
		t.Errorf("nil payload: got %q, %v", b, err)
	}

	b, err = marshalPayload(map[string]any{"files": []string{"a.mp4"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"files":["a.mp4"]}` {
		t.Errorf("unexpected payload: %s", b)
	}
}

func TestNullable(t *testing.T) {
	if nullable("") != nil {
		t.Error("empty string should be NULL")
	}
	if v := nullable("boom"); v == nil || *v != "boom" {
		t.Errorf("unexpected value: %v", v)
	}
}

// --- ResultRepo Tests ---

func TestCountLatestQuery_LatestAttemptOnly(t *testing.T) {
	q := strings.Join(strings.Fields(countLatestQuery), " ")
	for _, part := range []string{
		"DISTINCT ON (instance_index)",
		"ORDER BY instance_index, retry_count DESC",
		"GROUP BY status",
	} {
		if !strings.Contains(q, part) {
			t.Errorf("query should contain %q: %s", part, q)
		}
	}
}

// TestResultRepo_CountByStatus требует PostgreSQL: DARKBOT_TEST_DB_URL.
func TestResultRepo_CountByStatus(t *testing.T) {
	dsn := os.Getenv("DARKBOT_TEST_DB_URL")
	if dsn == "" {
		t.Skip("DARKBOT_TEST_DB_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}

	r := NewResultRepo(pool)
	msg := &domain.TaskMessage{BotType: "fake_message_bot", Instances: 2, MessageID: uuid.NewString()}

	// Три неудачные попытки, на последней instance 0 проходит
	for retry := 0; retry <= 3; retry++ {
		msg.RetryCount = retry
		first := domain.ErrorResult(0, "scrape", errors.New("source unavailable"))
		if retry == 3 {
			first = domain.SuccessResult(0, nil)
		}
		results := []domain.PipelineResult{first, domain.ErrorResult(1, "scrape", errors.New("source unavailable"))}
		if err := r.SaveResults(ctx, msg, results); err != nil {
			t.Fatalf("save retry %d: %v", retry, err)
		}
	}

	counts, err := r.CountByStatus(ctx, msg.MessageID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.ResultStatusSuccess] != 1 || counts[domain.ResultStatusError] != 1 {
		t.Errorf("expected one success and one error, got %v", counts)
	}

	if _, err := r.CountByStatus(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
