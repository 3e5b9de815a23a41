package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// chatAPI — часть SDK, которую использует анализатор. Позволяет мокать в тестах.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAnalyzer реализует Analyzer для OpenAI-совместимых vision API.
type OpenAIAnalyzer struct {
	api       chatAPI
	model     string
	maxTokens int
	timeout   time.Duration
	imgCfg    config.ImageProcConfig
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)

// NewOpenAIAnalyzer создает анализатор на основе конфигурации модели.
//
// Поддерживается custom BaseURL для non-OpenAI провайдеров (Zai, DeepSeek и т.д.).
func NewOpenAIAnalyzer(modelDef config.ModelDef, imgCfg config.ImageProcConfig) *OpenAIAnalyzer {
	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}

	return &OpenAIAnalyzer{
		api:       openai.NewClientWithConfig(cfg),
		model:     modelDef.ModelName,
		maxTokens: modelDef.MaxTokens,
		timeout:   modelDef.Timeout,
		imgCfg:    imgCfg.GetDefaults(),
	}
}

// Analyze отправляет изображение в vision модель и возвращает JSON с оценкой.
//
// Алгоритм:
//  1. Уменьшает изображение до max_width и кодирует в JPEG (data-uri)
//  2. Отправляет один user message: текст инструкции + картинка
//  3. Снимает markdown-обёртку и вырезает JSON объект из ответа
//
// Ошибки API и пустые ответы оборачивают ErrAnalyzer.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	startTime := time.Now()

	prepared, err := utils.ResizeImage(image, a.imgCfg.MaxWidth, a.imgCfg.Quality)
	if err != nil {
		// Битая картинка не починится ретраем
		return "", fmt.Errorf("prepare image: %w", err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: analysisPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI(prepared),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	}

	resp, err := a.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("Vision API request failed",
			"error", err,
			"model", a.model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return "", fmt.Errorf("%w: %v", ErrAnalyzer, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrAnalyzer)
	}

	content := utils.CleanJsonBlock(resp.Choices[0].Message.Content)
	if extracted := utils.ExtractJSON(content); extracted != "" {
		content = extracted
	}

	utils.Debug("Vision response received",
		"model", a.model,
		"content_length", len(content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return content, nil
}

func dataURI(jpegBytes []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegBytes)
}
