package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// AckResponse — подтверждение постановки в очередь.
type AckResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	BotType   string `json:"bot_type,omitempty"`
	Instances int    `json:"instances"`
	MessageID string `json:"message_id"`
}

// BotsResponse — поддерживаемые боты.
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
	ID        int64  `json:"id"`
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
	Body      string `json:"body"`
	ParkedAt  string `json:"parked_at"`
}

// --- Request types ---

// TaskConfig — под-конфиги instances.
type TaskConfig struct {
	Instances []map[string]any `json:"instances"`
}

// StartRequest — запуск бота или загрузки.
type StartRequest struct {
	Instances int        `json:"instances"`
	Config    TaskConfig `json:"config"`
	Priority  uint8      `json:"priority,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code          string   `json:"code"`
		Message       string   `json:"message"`
		SupportedBots []string `json:"supported_bots,omitempty"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул API.
type APIError struct {
	Status        int
	Code          string
	Message       string
	SupportedBots []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.SupportedBots) > 0 {
		msg += " (supported: " + strings.Join(e.SupportedBots, ", ") + ")"
	}
	return msg
}

// --- Client ---

// Client — HTTP-клиент для darkbot API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Bots ---

// ListBots возвращает поддерживаемые типы ботов.
func (c *Client) ListBots() ([]string, error) {
	var resp BotsResponse
	err := c.get("/darkbot/bots", &resp)
	return resp.Bots, err
}

// StartBot ставит в очередь запуск бота.
func (c *Client) StartBot(botType string, req StartRequest) (*AckResponse, error) {
	var ack AckResponse
	err := c.post("/darkbot/create/"+url.PathEscape(botType), req, &ack)
	return &ack, err
}

// StartUpload ставит в очередь загрузку готовых видео.
func (c *Client) StartUpload(req StartRequest) (*AckResponse, error) {
	var ack AckResponse
	err := c.post("/darkbot/upload", req, &ack)
	return &ack, err
}

// --- Results ---

// TaskResults возвращает сводку результатов задачи.
func (c *Client) TaskResults(messageID string) (*ResultsResponse, error) {
	var resp ResultsResponse
	err := c.get("/darkbot/tasks/"+url.PathEscape(messageID)+"/results", &resp)
	return &resp, err
}

// ListParked возвращает запаркованные dead letters.
func (c *Client) ListParked(limit int) ([]ParkedResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var parked []ParkedResponse
	err := c.list("/darkbot/dlq/parked", params, &parked)
	return parked, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return &APIError{
		Status:        resp.StatusCode,
		Code:          er.Error.Code,
		Message:       er.Error.Message,
		SupportedBots: er.Error.SupportedBots,
	}
}
