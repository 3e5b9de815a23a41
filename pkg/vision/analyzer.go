// Package vision реализует анализ качества и privacy креатива через vision модель.
//
// Контракт анализатора: байты изображения на входе, JSON строка на выходе:
//
//	{"quality": 7.5, "privacy": true}
//
// Временные сбои оборачивают ErrAnalyzer, валидатор их ретраит.
// Любая другая ошибка считается фатальной для конкретного файла.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAnalyzer — временная ошибка анализатора (сеть, лимиты, пустой ответ API).
var ErrAnalyzer = errors.New("image analyzer error")

var (
	// ErrMalformedResult — ответ не является JSON. Такой ответ можно запросить заново.
	ErrMalformedResult = errors.New("analysis result is not valid JSON")
	// ErrUnexpectedResult — JSON корректен, но не объект или поля не того типа.
	ErrUnexpectedResult = errors.New("analysis result has unexpected shape")
)

// Analyzer анализирует изображение и возвращает JSON строку с оценкой.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (string, error)
}

// AnalyzerFunc позволяет использовать функцию как Analyzer.
type AnalyzerFunc func(ctx context.Context, image []byte) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Result — разобранный ответ анализатора.
// Quality == nil если модель не вернула оценку.
type Result struct {
	Quality *float64 `json:"quality"`
	Privacy *bool    `json:"privacy"`
}

// ParseResult разбирает ответ анализатора.
//
// Отсутствующий "privacy" означает false, явный null оставляет значение
// неизвестным (nil). Отсутствующий или null "quality" даёт nil.
func ParseResult(raw string) (Result, error) {
	if !json.Valid([]byte(raw)) {
		return Result{}, ErrMalformedResult
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return Result{}, ErrUnexpectedResult
	}

	var res Result
	if q, ok := fields["quality"]; ok {
		if err := json.Unmarshal(q, &res.Quality); err != nil {
			return Result{}, fmt.Errorf("%w: quality: %v", ErrUnexpectedResult, err)
		}
	}

	p, ok := fields["privacy"]
	if !ok {
		res.Privacy = new(bool)
		return res, nil
	}
	if err := json.Unmarshal(p, &res.Privacy); err != nil {
		return Result{}, fmt.Errorf("%w: privacy: %v", ErrUnexpectedResult, err)
	}
	return res, nil
}

// analysisPrompt — инструкция для vision модели.
const analysisPrompt = `You are reviewing a marketing creative before it goes live.
Rate its technical and visual quality from 0 to 10 (sharpness, composition, legibility of text).
Decide whether it is privacy compliant: it must not show identifiable faces of private persons,
licence plates, personal documents, phone numbers or e-mail addresses.
Respond with JSON only, no prose: {"quality": <number>, "privacy": <true|false>}`
