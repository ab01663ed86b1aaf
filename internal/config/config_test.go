package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Queues.MainQueue != "bot_tasks" || cfg.Queues.DLQQueue != "bot_dlq" {
		t.Errorf("unexpected queue names: %+v", cfg.Queues)
	}
	if cfg.Queues.Exchange != "bot_exchange" || cfg.Queues.ExchangeType != "direct" || cfg.Queues.DLQExchange != "bot_dlx" {
		t.Errorf("unexpected exchanges: %+v", cfg.Queues)
	}
	if cfg.Queues.Priority != 5 || cfg.Queues.DLQPriority != 10 {
		t.Errorf("unexpected priorities: %d / %d", cfg.Queues.Priority, cfg.Queues.DLQPriority)
	}
	if cfg.Worker.MaxRetries != 3 || cfg.Worker.Concurrency != 4 || cfg.Worker.MaxConcurrentInstances != 10 {
		t.Errorf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.Worker.RequeueDelay != 5*time.Second {
		t.Errorf("expected worker requeue delay 5s, got %s", cfg.Worker.RequeueDelay)
	}
	if cfg.DLQ.RetryDelay != 5*time.Second || cfg.DLQ.MaxRecoveries != 0 {
		t.Errorf("unexpected dlq config: %+v", cfg.DLQ)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAIN_QUEUE_NAME", "custom_tasks")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("MAX_CONCURRENT_INSTANCES", "2")
	t.Setenv("DLQ_RETRY_DELAY", "250ms")
	t.Setenv("PRIORITY", "7")
	t.Setenv("WORKER_REQUEUE_DELAY", "2s")

	cfg, err := load(viper.New(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Queues.MainQueue != "custom_tasks" {
		t.Errorf("expected custom_tasks, got %s", cfg.Queues.MainQueue)
	}
	if cfg.Worker.MaxRetries != 5 || cfg.Worker.MaxConcurrentInstances != 2 {
		t.Errorf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.DLQ.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.DLQ.RetryDelay)
	}
	if cfg.Worker.RequeueDelay != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.Worker.RequeueDelay)
	}
	if cfg.Queues.Priority != 7 {
		t.Errorf("expected priority 7, got %d", cfg.Queues.Priority)
	}
}

func TestLoad_ExchangeType(t *testing.T) {
	for _, kind := range []string{"direct", "topic"} {
		t.Setenv("EXCHANGE_TYPE", kind)
		if _, err := load(viper.New(), false); err != nil {
			t.Errorf("%s should be accepted: %v", kind, err)
		}
	}

	// fanout и headers игнорируют routing key: задача попала бы в обе рабочие очереди
	for _, kind := range []string{"fanout", "headers"} {
		t.Setenv("EXCHANGE_TYPE", kind)
		if _, err := load(viper.New(), false); err == nil {
			t.Errorf("%s should be rejected", kind)
		}
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"MAX_RETRIES":              "0",
		"MAX_CONCURRENT_INSTANCES": "0",
		"EXCHANGE_TYPE":            "random",
		"DLQ_MAX_RECOVERIES":       "-1",
		"PRIORITY":                 "11",
		"WORKER_REQUEUE_DELAY":     "0s",
	}

	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, value)
			if _, err := load(viper.New(), false); err == nil {
				t.Errorf("expected validation error for %s=%s", env, value)
			}
		})
	}
}
