package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksPublished — сообщения, опубликованные в очереди.
	TasksPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_tasks_published_total",
			Help: "Total number of task messages published, by queue.",
		},
		[]string{"queue"},
	)

	// InstancesTotal — завершённые pipeline instances по типу бота и статусу.
	InstancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_instances_total",
			Help: "Total number of finished pipeline instances.",
		},
		[]string{"bot_type", "status"},
	)

	// InstancesInFlight — instances, выполняющиеся прямо сейчас.
	InstancesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "darkbot_instances_in_flight",
			Help: "Number of pipeline instances currently running.",
		},
	)

	// TaskRetries — повторные доставки задач.
	TaskRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_task_retries_total",
			Help: "Total number of task redeliveries after a task-level failure.",
		},
		[]string{"queue"},
	)

	// DeadLetters — задачи, ушедшие в DLQ.
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_dead_letters_total",
			Help: "Total number of tasks routed to the dead-letter queue.",
		},
		[]string{"queue"},
	)

	// DLQRecovered — обработанные DLQ consumer'ом сообщения по исходу
	// (requeued, parked, malformed, failed).
	DLQRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_dlq_recovered_total",
			Help: "Total number of dead letters processed by the recovery consumer.",
		},
		[]string{"outcome"},
	)

	// HTTPRequests — HTTP запросы к API.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkbot_api_http_requests_total",
			Help: "Total HTTP requests handled by darkbot-api.",
		},
		[]string{"path", "code"},
	)
)
