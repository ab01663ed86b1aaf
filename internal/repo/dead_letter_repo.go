package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ParkedDeadLetter — dead letter, который больше не восстанавливается.
type ParkedDeadLetter struct {
	ID        int64
	MessageID string
	Body      []byte
	Reason    string
	ParkedAt  time.Time
}

// DeadLetterRepo — репозиторий запаркованных dead letters.
type DeadLetterRepo struct {
	pool *pgxpool.Pool
}

// NewDeadLetterRepo создаёт новый DeadLetterRepo.
func NewDeadLetterRepo(pool *pgxpool.Pool) *DeadLetterRepo {
	return &DeadLetterRepo{pool: pool}
}

// Park сохраняет тело сообщения и причину парковки.
func (r *DeadLetterRepo) Park(ctx context.Context, messageID string, body []byte, reason string) error {
	query := `
		INSERT INTO parked_dead_letters (message_id, body, reason)
		VALUES ($1, $2, $3)
	`
	if _, err := r.pool.Exec(ctx, query, messageID, body, reason); err != nil {
		return fmt.Errorf("insert parked dead letter: %w", err)
	}
	return nil
}

// ListRecent возвращает последние запаркованные сообщения.
func (r *DeadLetterRepo) ListRecent(ctx context.Context, limit int) ([]ParkedDeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, message_id, body, reason, parked_at
		FROM parked_dead_letters
		ORDER BY parked_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list parked dead letters: %w", err)
	}
	defer rows.Close()

	var result []ParkedDeadLetter
	for rows.Next() {
		var p ParkedDeadLetter
		if err := rows.Scan(&p.ID, &p.MessageID, &p.Body, &p.Reason, &p.ParkedAt); err != nil {
			return nil, fmt.Errorf("scan parked dead letter: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parked dead letters: %w", err)
	}
	return result, nil
}
