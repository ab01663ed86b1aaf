package api

import (
	"time"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/repo"
)

// CreateBotRequest — тело запроса на запуск бота.
// Тип бота передаётся в пути.
type CreateBotRequest struct {
	Instances int               `json:"instances"`
	Config    domain.TaskConfig `json:"config"`
	Priority  uint8             `json:"priority,omitempty"`
}

// ToDomain конвертирует запрос в domain.TaskRequest.
func (r CreateBotRequest) ToDomain(botType string) *domain.TaskRequest {
	return &domain.TaskRequest{
		BotType:   botType,
		Instances: r.Instances,
		Config:    r.Config,
		Priority:  r.Priority,
	}
}

// BotsResponse — список поддерживаемых ботов.
type BotsResponse struct {
	Bots []string `json:"bots"`
}

// ResultsResponse — сводка результатов задачи.
type ResultsResponse struct {
	MessageID string         `json:"message_id"`
	Counts    map[string]int `json:"counts"`
}

// ParkedResponse — запаркованный dead letter.
type ParkedResponse struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	Reason    string    `json:"reason"`
	Body      string    `json:"body"`
	ParkedAt  time.Time `json:"parked_at"`
}

// ParkedFromRepo конвертирует repo.ParkedDeadLetter в ParkedResponse.
func ParkedFromRepo(p repo.ParkedDeadLetter) ParkedResponse {
	return ParkedResponse{
		ID:        p.ID,
		MessageID: p.MessageID,
		Reason:    p.Reason,
		Body:      string(p.Body),
		ParkedAt:  p.ParkedAt,
	}
}
