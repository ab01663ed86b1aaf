package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaiso/darkbot/internal/domain"
)

// CreateBot ставит в очередь запуск бота.
// POST /darkbot/create/{bot_type}
func (h *Handler) CreateBot(w http.ResponseWriter, r *http.Request) {
	var req CreateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	ack, err := h.dispatcher.Submit(r.Context(), req.ToDomain(r.PathValue("bot_type")))
	if HandleSubmitError(w, h.logger, err) {
		return
	}

	Accepted(w, ack)
}

// CreateUpload ставит в очередь загрузку готовых видео.
// POST /darkbot/upload
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req domain.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	ack, err := h.dispatcher.SubmitUpload(r.Context(), &req)
	if HandleSubmitError(w, h.logger, err) {
		return
	}

	Accepted(w, ack)
}

// ListBots возвращает поддерживаемые типы ботов.
// GET /darkbot/bots
func (h *Handler) ListBots(w http.ResponseWriter, r *http.Request) {
	Success(w, BotsResponse{Bots: h.dispatcher.SupportedBots()})
}

// GetTaskResults возвращает сводку результатов задачи по статусам.
// GET /darkbot/tasks/{message_id}/results
func (h *Handler) GetTaskResults(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		Unavailable(w, "result store is not configured")
		return
	}

	messageID := r.PathValue("message_id")
	counts, err := h.results.CountByStatus(r.Context(), messageID)
	if HandleRepoError(w, h.logger, err, "no results for task") {
		return
	}

	resp := ResultsResponse{MessageID: messageID, Counts: make(map[string]int, len(counts))}
	for status, n := range counts {
		resp.Counts[status.String()] = n
	}
	Success(w, resp)
}

// ListParked возвращает последние запаркованные dead letters.
// GET /darkbot/dlq/parked?limit=...
func (h *Handler) ListParked(w http.ResponseWriter, r *http.Request) {
	if h.parked == nil {
		Unavailable(w, "dead letter store is not configured")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	parked, err := h.parked.ListRecent(r.Context(), limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ParkedResponse, len(parked))
	for i, p := range parked {
		result[i] = ParkedFromRepo(p)
	}

	List(w, result, len(result))
}

// Health — проверка живости.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
