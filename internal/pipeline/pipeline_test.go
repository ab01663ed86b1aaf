package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
)

// --- helpers ---

// recordingSet возвращает StrategySet, который записывает вызванные шаги.
func recordingSet(calls *[]string, mu *sync.Mutex, failAt bots.StageKind) bots.StrategySet {
	record := func(stage bots.StageKind) error {
		mu.Lock()
		*calls = append(*calls, string(stage))
		mu.Unlock()
		if stage == failAt {
			return fmt.Errorf("%s boom", stage)
		}
		return nil
	}

	return bots.StrategySet{
		Scrape: bots.ScrapeFunc(func(_ context.Context, cfg domain.InstanceConfig) (*bots.Content, error) {
			if err := record(bots.StageScrape); err != nil {
				return nil, err
			}
			return &bots.Content{Instance: cfg, Items: []any{"a"}}, nil
		}),
		Process: bots.ProcessFunc(func(_ context.Context, c *bots.Content) (*bots.Content, error) {
			if err := record(bots.StageProcess); err != nil {
				return nil, err
			}
			return c, nil
		}),
		Edit: bots.EditFunc(func(_ context.Context, c *bots.Content) (string, error) {
			if err := record(bots.StageEdit); err != nil {
				return "", err
			}
			return c.Account() + ".mp4", nil
		}),
		Upload: bots.UploadFunc(func(_ context.Context, path string, _ map[string]any) (*bots.Upload, error) {
			if err := record(bots.StageUpload); err != nil {
				return nil, err
			}
			return &bots.Upload{Files: []string{path}}, nil
		}),
	}
}

func taskConfig(n int) domain.TaskConfig {
	cfg := domain.TaskConfig{Instances: make([]domain.InstanceConfig, n)}
	for i := range cfg.Instances {
		cfg.Instances[i] = domain.InstanceConfig{"account": fmt.Sprintf("account_%02d", i)}
	}
	return cfg
}

// --- Executor Tests ---

func TestExecutor_AllStagesSucceed(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	set := recordingSet(&calls, &mu, "")

	e := NewExecutor(0, domain.InstanceConfig{"account": "acc"}, set, nil)
	result := e.Run(context.Background())

	if result.Status != domain.ResultStatusSuccess {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Error)
	}
	if e.State() != domain.PipelineStateCompleted {
		t.Errorf("expected COMPLETED, got %s", e.State())
	}

	want := []string{"scrape", "process", "edit", "upload"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("expected stages %v, got %v", want, calls)
	}

	// Payload — выход последнего шага
	upload, ok := result.Payload.(*bots.Upload)
	if !ok || upload.Files[0] != "acc.mp4" {
		t.Errorf("unexpected payload: %#v", result.Payload)
	}
}

func TestExecutor_SkipsProcess(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	set := recordingSet(&calls, &mu, "")
	set.Process = nil

	result := NewExecutor(0, domain.InstanceConfig{}, set, nil).Run(context.Background())

	if !result.IsSuccess() {
		t.Fatalf("expected success, got %s", result.Error)
	}
	want := []string{"scrape", "edit", "upload"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("expected stages %v, got %v", want, calls)
	}
}

func TestExecutor_FailFast(t *testing.T) {
	tests := []struct {
		failAt   bots.StageKind
		sentinel error
		calls    []string
	}{
		{bots.StageScrape, bots.ErrScrape, []string{"scrape"}},
		{bots.StageProcess, bots.ErrProcess, []string{"scrape", "process"}},
		{bots.StageEdit, bots.ErrRender, []string{"scrape", "process", "edit"}},
		{bots.StageUpload, bots.ErrUpload, []string{"scrape", "process", "edit", "upload"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.failAt), func(t *testing.T) {
			var calls []string
			var mu sync.Mutex
			e := NewExecutor(3, domain.InstanceConfig{}, recordingSet(&calls, &mu, tt.failAt), nil)

			result := e.Run(context.Background())

			if result.Status != domain.ResultStatusError {
				t.Fatalf("expected error status, got %s", result.Status)
			}
			if result.InstanceIndex != 3 {
				t.Errorf("expected index 3, got %d", result.InstanceIndex)
			}
			if result.ErrorKind != string(tt.failAt) {
				t.Errorf("expected kind %s, got %s", tt.failAt, result.ErrorKind)
			}
			if e.State() != domain.PipelineStateFailed {
				t.Errorf("expected FAILED, got %s", e.State())
			}
			// Следующие шаги не запускались
			if fmt.Sprint(calls) != fmt.Sprint(tt.calls) {
				t.Errorf("expected stages %v, got %v", tt.calls, calls)
			}
		})
	}
}

func TestExecutor_NilContent(t *testing.T) {
	set := bots.FakeMessageBot()
	set.Scrape = bots.ScrapeFunc(func(context.Context, domain.InstanceConfig) (*bots.Content, error) {
		return nil, nil
	})

	result := NewExecutor(0, domain.InstanceConfig{}, set, nil).Run(context.Background())
	if result.Status != domain.ResultStatusError || result.ErrorKind != string(bots.StageScrape) {
		t.Errorf("expected scrape error, got %+v", result)
	}
}

func TestExecutor_RunTwice(t *testing.T) {
	cfg := domain.InstanceConfig{"credentials": map[string]any{"platform": "tiktok"}}
	e := NewExecutor(0, cfg, bots.FakeMessageBot(), nil)

	if r := e.Run(context.Background()); !r.IsSuccess() {
		t.Fatalf("first run should succeed: %s", r.Error)
	}
	if r := e.Run(context.Background()); r.IsSuccess() {
		t.Error("second run from COMPLETED should fail")
	}
}

func TestExecutor_InvalidTransitionAfterScrape(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	set := recordingSet(&calls, &mu, "")

	var e *Executor
	scrape := set.Scrape
	// Шаг scrape переводит автомат в финальное состояние в обход transition
	set.Scrape = bots.ScrapeFunc(func(ctx context.Context, cfg domain.InstanceConfig) (*bots.Content, error) {
		e.mu.Lock()
		e.state = domain.PipelineStateCompleted
		e.mu.Unlock()
		return scrape.Scrape(ctx, cfg)
	})
	e = NewExecutor(0, domain.InstanceConfig{"account": "acc"}, set, nil)

	result := e.Run(context.Background())
	if result.IsSuccess() {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Error, ErrInvalidTransition.Error()) {
		t.Errorf("expected ErrInvalidTransition, got %s", result.Error)
	}
	if result.ErrorKind != string(bots.StageProcess) {
		t.Errorf("expected process error kind, got %s", result.ErrorKind)
	}
	if fmt.Sprint(calls) != fmt.Sprint([]string{"scrape"}) {
		t.Errorf("no stage should run after invalid transition, got %v", calls)
	}
}

// --- FanOut Tests ---

func TestFanOut_ResultsOrderedByIndex(t *testing.T) {
	for n := 1; n <= 7; n++ {
		runners := make([]Runner, n)
		for i := range runners {
			delay := time.Duration(n-i) * time.Millisecond
			runners[i] = RunnerFunc(func(context.Context) domain.PipelineResult {
				// Поздние instances завершаются раньше
				time.Sleep(delay)
				return domain.SuccessResult(-1, nil)
			})
		}

		results := NewFanOut(FanOutConfig{MaxConcurrent: 3}).Run(context.Background(), runners)

		if len(results) != n {
			t.Fatalf("n=%d: expected %d results, got %d", n, n, len(results))
		}
		for i, r := range results {
			if r.InstanceIndex != i {
				t.Errorf("n=%d: results[%d].InstanceIndex = %d", n, i, r.InstanceIndex)
			}
		}
	}
}

func TestFanOut_RespectsConcurrencyLimit(t *testing.T) {
	const (
		limit = 3
		n     = 12
	)

	var running, maxRunning, attempts int64
	runners := make([]Runner, n)
	for i := range runners {
		runners[i] = RunnerFunc(func(context.Context) domain.PipelineResult {
			atomic.AddInt64(&attempts, 1)
			cur := atomic.AddInt64(&running, 1)
			for {
				prev := atomic.LoadInt64(&maxRunning)
				if cur <= prev || atomic.CompareAndSwapInt64(&maxRunning, prev, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return domain.SuccessResult(0, nil)
		})
	}

	results := NewFanOut(FanOutConfig{MaxConcurrent: limit}).Run(context.Background(), runners)

	if len(results) != n {
		t.Fatalf("expected %d results, got %d", n, len(results))
	}
	if attempts != n {
		t.Errorf("expected exactly %d attempts, got %d", n, attempts)
	}
	if maxRunning > limit {
		t.Errorf("max concurrent %d exceeds limit %d", maxRunning, limit)
	}
	if maxRunning < 2 {
		t.Errorf("instances should run concurrently, max was %d", maxRunning)
	}
}

func TestFanOut_IsolatesStageFailure(t *testing.T) {
	set := bots.FakeMessageBot()
	cfg := domain.TaskConfig{Instances: []domain.InstanceConfig{
		{"credentials": map[string]any{"platform": "tiktok"}},
		{"credentials": map[string]any{}}, // нет platform → upload падает
		{"credentials": map[string]any{"platform": "youtube"}},
	}}

	results := NewFanOut(FanOutConfig{MaxConcurrent: 2}).Run(context.Background(), NewExecutors(cfg, set, nil))

	if results[1].Status != domain.ResultStatusError || results[1].ErrorKind != string(bots.StageUpload) {
		t.Errorf("instance 1 should fail on upload, got %+v", results[1])
	}
	for _, i := range []int{0, 2} {
		if !results[i].IsSuccess() {
			t.Errorf("instance %d should succeed, got %s", i, results[i].Error)
		}
	}
	if domain.CountByStatus(results, domain.ResultStatusSuccess) != 2 {
		t.Errorf("expected 2 successes")
	}
}

func TestFanOut_IsolatesPanic(t *testing.T) {
	runners := []Runner{
		RunnerFunc(func(context.Context) domain.PipelineResult { return domain.SuccessResult(0, "ok") }),
		RunnerFunc(func(context.Context) domain.PipelineResult { panic("unexpected") }),
		RunnerFunc(func(context.Context) domain.PipelineResult { return domain.SuccessResult(2, "ok") }),
	}

	results := NewFanOut(FanOutConfig{MaxConcurrent: 1}).Run(context.Background(), runners)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].ErrorKind != ErrorKindPanic || results[1].InstanceIndex != 1 {
		t.Errorf("expected panic result for instance 1, got %+v", results[1])
	}
	if !results[0].IsSuccess() || !results[2].IsSuccess() {
		t.Error("siblings of a panicking instance should succeed")
	}
}

func TestFanOut_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	block := make(chan struct{})
	runners := []Runner{
		RunnerFunc(func(context.Context) domain.PipelineResult {
			cancel()
			<-block
			return domain.SuccessResult(0, nil)
		}),
		RunnerFunc(func(context.Context) domain.PipelineResult {
			return domain.SuccessResult(1, nil)
		}),
	}

	done := make(chan []domain.PipelineResult)
	go func() {
		done <- NewFanOut(FanOutConfig{MaxConcurrent: 1}).Run(ctx, runners)
	}()

	// Второй runner ждёт слот, контекст отменяется — он не стартует
	time.Sleep(20 * time.Millisecond)
	close(block)

	results := <-done
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].ErrorKind != ErrorKindCancelled || results[1].Status != domain.ResultStatusError {
		t.Errorf("expected instance 1 to be cancelled, got %+v", results[1])
	}
}
