package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/darkbot/internal/domain"
)

// ResultRepo — репозиторий результатов instances.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo создаёт новый ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// SaveResults сохраняет результаты всех instances одной доставки задачи.
// Повторное сохранение той же доставки ничего не меняет.
func (r *ResultRepo) SaveResults(ctx context.Context, msg *domain.TaskMessage, results []domain.PipelineResult) error {
	query := `
		INSERT INTO pipeline_results (
			message_id, instance_index, bot_type, kind, retry_count,
			status, state, payload, error, error_kind, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (message_id, retry_count, instance_index) DO NOTHING
	`

	kind := msg.Kind
	if kind == "" {
		kind = domain.TaskKindBot
	}

	batch := &pgx.Batch{}
	for i := range results {
		res := &results[i]

		payload, err := marshalPayload(res.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload of instance %d: %w", res.InstanceIndex, err)
		}

		batch.Queue(query,
			msg.MessageID,
			res.InstanceIndex,
			msg.BotType,
			string(kind),
			msg.RetryCount,
			string(res.Status),
			string(res.State),
			payload,
			nullable(res.Error),
			nullable(res.ErrorKind),
			res.Duration.Milliseconds(),
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

// countLatestQuery считает статусы по последней попытке каждого instance:
// ранние retry_count того же instance не учитываются.
const countLatestQuery = `
	SELECT status, count(*)
	FROM (
		SELECT DISTINCT ON (instance_index) status
		FROM pipeline_results
		WHERE message_id = $1
		ORDER BY instance_index, retry_count DESC
	) latest
	GROUP BY status
`

// CountByStatus возвращает количество instances сообщения по статусам.
// Учитывается только последняя попытка instance, поэтому сумма равна
// числу instances задачи.
func (r *ResultRepo) CountByStatus(ctx context.Context, messageID string) (map[domain.ResultStatus]int, error) {
	query := countLatestQuery
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ResultStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan result count: %w", err)
		}
		counts[domain.ResultStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result counts: %w", err)
	}
	if len(counts) == 0 {
		return nil, ErrNotFound
	}
	return counts, nil
}

// marshalPayload сериализует payload в JSON (nil для пустого).
func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// nullable превращает пустую строку в NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
