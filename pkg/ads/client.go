// Package ads — клиент рекламной платформы для обновления бюджетов креативов.
//
// Клиент делает ровно одну попытку на вызов: повторы делает вызывающий
// (валидатор и менеджер бюджета считают попытки сами). Перед каждым запросом
// клиент ждёт rate limiter, чтобы пачка ретраев не упёрлась в лимит API.
package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// DemoKey переключает клиент в режим симуляции.
const DemoKey = "demo_key"

// ErrorType представляет тип ошибки при работе с рекламным API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrAuthFailed:
		return "API ключ недействителен или отсутствует. Проверьте ads.api_key в конфигурации."
	case ErrTimeout:
		return "Превышено время ожидания. Рекламный API не отвечает или проблемы с сетью."
	case ErrNetwork:
		return "Рекламный API недоступен. Проверьте подключение к интернету."
	case ErrRateLimit:
		return "Превышен лимит запросов. Подождите перед следующей попыткой."
	default:
		return "Неизвестная ошибка при обращении к рекламному API."
	}
}

// ClassifyError классифицирует ошибку или ответ по тексту.
//
//   - ErrAuthFailed: 401, unauthorized, Forbidden
//   - ErrTimeout: timeout, deadline exceeded
//   - ErrNetwork: connection refused, no such host
//   - ErrRateLimit: 429, Too Many Requests
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}
	return classifyMessage(err.Error())
}

func classifyMessage(errMsg string) ErrorType {
	errMsgLower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsg, "Forbidden"):
		return ErrAuthFailed
	case strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded"):
		return ErrTimeout
	case strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host"):
		return ErrNetwork
	case strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests"):
		return ErrRateLimit
	}
	return ErrUnknown
}

// UpdateResult — ответ платформы на изменение бюджета.
//
// Ошибка платформы приходит в поле "error" при успешном HTTP обмене:
// само наличие ключа означает отказ, даже если значение пустое или null.
type UpdateResult struct {
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	Rejected bool   `json:"-"` // в ответе был ключ "error"
}

// UnmarshalJSON запоминает наличие ключа "error" независимо от значения.
func (r *UpdateResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = UpdateResult{}
	if raw, ok := fields["status"]; ok {
		if err := json.Unmarshal(raw, &r.Status); err != nil {
			r.Status = string(raw)
		}
	}
	if raw, ok := fields["error"]; ok {
		r.Rejected = true
		if err := json.Unmarshal(raw, &r.Error); err != nil {
			r.Error = string(raw)
		}
	}
	return nil
}

// Failed сообщает, что платформа отклонила изменение.
func (r UpdateResult) Failed() bool {
	return r.Rejected || r.Error != ""
}

// BudgetUpdater — операция платформы, которую используют валидатор и менеджер бюджета.
type BudgetUpdater interface {
	UpdateBudget(ctx context.Context, adID, assetID string, newBudget int) (UpdateResult, error)
}

// HTTPClient интерфейс для выполнения HTTP запросов.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client — HTTP клиент рекламного API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	limiter    *rate.Limiter
}

var _ BudgetUpdater = (*Client)(nil)

// NewFromConfig создает клиент из конфигурации.
// Поля с нулевыми значениями используют дефолты из AdsConfig.GetDefaults().
func NewFromConfig(cfg config.AdsConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ads.api_key is required")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid ads.timeout format: %w", err)
	}

	// rateLimit в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(cfg.RateLimit) / 60.0

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), cfg.BurstLimit),
	}, nil
}

// NewUpdater возвращает симулятор для demo ключа и HTTP клиент иначе.
func NewUpdater(cfg config.AdsConfig) (BudgetUpdater, error) {
	if cfg.APIKey == DemoKey {
		utils.Info("Ads client in demo mode, budget updates are simulated")
		return NewSimulator(), nil
	}
	return NewFromConfig(cfg)
}

// IsDemoKey проверяет что используется demo ключ.
func (c *Client) IsDemoKey() bool {
	return c.apiKey == DemoKey
}

type budgetRequest struct {
	Budget int `json:"budget"`
}

// UpdateBudget выставляет новый бюджет креатива в объявлении.
//
// POST {base_url}/v1/ads/{ad_id}/assets/{asset_id}/budget с телом {"budget": N}.
// Статус не 2xx превращается в UpdateResult с заполненным Error, ошибка
// транспорта возвращается как error.
func (c *Client) UpdateBudget(ctx context.Context, adID, assetID string, newBudget int) (UpdateResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return UpdateResult{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/ads/%s/assets/%s/budget",
		c.baseURL, url.PathEscape(adID), url.PathEscape(assetID))

	body, err := json.Marshal(budgetRequest{Budget: newBudget})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return UpdateResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errType := ClassifyError(err)
		utils.Warn("Ads API request failed",
			"ad_id", adID,
			"asset_id", assetID,
			"error_type", errType.String(),
			"error", err)
		return UpdateResult{}, fmt.Errorf("ads api request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		utils.Warn("Ads API rejected budget update",
			"ad_id", adID,
			"asset_id", assetID,
			"status", resp.StatusCode,
			"error_type", classifyMessage(msg).String())
		return UpdateResult{Status: "error", Error: msg}, nil
	}

	var result UpdateResult
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return UpdateResult{}, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	if result.Status == "" && !result.Failed() {
		result.Status = "success"
	}

	utils.Debug("Ads budget updated",
		"ad_id", adID,
		"asset_id", assetID,
		"budget", newBudget,
		"status", result.Status)

	return result, nil
}
