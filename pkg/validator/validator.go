// Package validator проверяет креатив перед раскладкой по иерархии.
//
// Конвейер для одного файла:
//  1. имя файла (восемь атрибутов не пустые)
//  2. код выкупа (известен и не истёк)
//  3. качество и privacy через vision анализатор (с ретраями)
//  4. если выкуп невалиден, бюджет обнуляется, платформе отправляется 0
//
// Итог записывается в Report, который передаёт вызывающий.
package validator

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ilkoid/creative-sorter/pkg/ads"
	"github.com/ilkoid/creative-sorter/pkg/asset"
	"github.com/ilkoid/creative-sorter/pkg/utils"
	"github.com/ilkoid/creative-sorter/pkg/vision"
)

const (
	defaultMaxRetries = 3
	zeroBudgetRetries = 3
)

// Validator выполняет проверки креатива.
type Validator struct {
	analyzer   vision.Analyzer
	updater    ads.BudgetUpdater
	maxRetries int
	now        func() time.Time
}

// Option настраивает Validator.
type Option func(*Validator)

// WithMaxRetries задаёт число попыток вызова анализатора.
func WithMaxRetries(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxRetries = n
		}
	}
}

// WithClock подменяет источник текущего времени (для проверки выкупа).
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New создаёт валидатор.
func New(analyzer vision.Analyzer, updater ads.BudgetUpdater, opts ...Option) *Validator {
	v := &Validator{
		analyzer:   analyzer,
		updater:    updater,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateName проверяет что все восемь атрибутов имени заполнены.
func (v *Validator) ValidateName(a *asset.Asset) bool {
	required := []struct {
		name  string
		value string
	}{
		{"country", a.Country},
		{"language", a.Language},
		{"buyout_code", a.BuyoutCode},
		{"concept", a.Concept},
		{"audience", a.Audience},
		{"transaction_side", a.TransactionSide},
		{"asset_format", a.AssetFormat},
		{"duration", a.Duration},
	}

	for _, f := range required {
		if f.value == "" {
			utils.Warn("Asset missing required field", "file", a.Filename, "field", f.name)
			return false
		}
	}

	utils.Debug("Asset name validation passed", "file", a.Filename)
	return true
}

// ValidateImageQuality запрашивает у анализатора оценку качества и privacy.
//
// Возвращает (nil, nil) если файла нет, его нельзя прочитать или анализатор
// не дал разборчивого ответа за maxRetries попыток. Пустой ответ, битый JSON
// и ErrAnalyzer ретраятся. Любая другая ошибка анализатора, как и JSON не той
// формы, прерывает проверку.
func (v *Validator) ValidateImageQuality(ctx context.Context, a *asset.Asset, imagePath string) (*float64, *bool) {
	if _, err := os.Stat(imagePath); err != nil {
		utils.Error("Image file not found", "file", a.Filename, "path", imagePath)
		return nil, nil
	}

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		utils.Error("Failed to read image", "file", a.Filename, "error", err)
		return nil, nil
	}

	for attempt := 1; attempt <= v.maxRetries; attempt++ {
		raw, err := v.analyzer.Analyze(ctx, imageBytes)
		if err != nil {
			if !errors.Is(err, vision.ErrAnalyzer) {
				utils.Error("Image analysis failed", "file", a.Filename, "error", err)
				return nil, nil
			}
			utils.Warn("Image analyzer error",
				"file", a.Filename,
				"attempt", attempt,
				"max_retries", v.maxRetries,
				"error", err)
			if attempt == v.maxRetries {
				utils.Error("Max retries reached for image analysis", "file", a.Filename)
				return nil, nil
			}
			continue
		}

		if raw == "" {
			utils.Warn("Empty analysis result",
				"file", a.Filename,
				"attempt", attempt,
				"max_retries", v.maxRetries)
			continue
		}

		res, err := vision.ParseResult(raw)
		if errors.Is(err, vision.ErrMalformedResult) {
			utils.Error("Invalid JSON from image analyzer", "file", a.Filename, "response", raw)
			continue
		}
		if err != nil {
			utils.Error("Unexpected analysis result", "file", a.Filename, "response", raw, "error", err)
			return nil, nil
		}

		utils.Info("Asset quality validation",
			"file", a.Filename,
			"quality", floatOrNil(res.Quality),
			"privacy_compliant", boolOrNil(res.Privacy))
		return res.Quality, res.Privacy
	}

	return nil, nil
}

// PushZeroBudget отправляет платформе нулевой бюджет креатива.
//
// Без AdID или FileID вызова нет. Делается до трёх попыток, ошибка вызова и
// ошибка в ответе платформы одинаково считаются неудачной попыткой.
func (v *Validator) PushZeroBudget(ctx context.Context, a *asset.Asset) bool {
	if a.AdID == "" {
		utils.Warn("Asset has no ad_id, cannot update budget", "file", a.Filename)
		return false
	}
	if a.FileID == "" {
		utils.Warn("Asset has no file_id, cannot update budget", "file", a.Filename)
		return false
	}

	for attempt := 1; attempt <= zeroBudgetRetries; attempt++ {
		res, err := v.updater.UpdateBudget(ctx, a.AdID, a.FileID, 0)
		switch {
		case err != nil:
			utils.Warn("Error updating budget",
				"file", a.Filename,
				"attempt", attempt,
				"error", err)
		case res.Failed():
			utils.Warn("Error updating budget",
				"file", a.Filename,
				"attempt", attempt,
				"error", res.Error)
		default:
			utils.Info("Budget set to zero", "file", a.Filename, "ad_id", a.AdID)
			return true
		}
	}

	utils.Error("Max retries reached for updating budget", "file", a.Filename)
	return false
}

// ValidateAsset прогоняет весь конвейер и записывает результат в report.
//
// Шаги 1-3 выполняются всегда. При невалидном выкупе бюджет креатива
// становится 0 независимо от того, принял ли изменение рекламный API.
func (v *Validator) ValidateAsset(ctx context.Context, a *asset.Asset, imagePath string, buyouts map[string]string, report *Report) *asset.Asset {
	utils.Info("Starting validation", "file", a.Filename)

	a.IsValidName = v.ValidateName(a)
	a.IsBuyoutValid = v.ValidateBuyout(a, buyouts)
	a.QualityScore, a.IsPrivacyCompliant = v.ValidateImageQuality(ctx, a, imagePath)

	if !a.IsBuyoutValid {
		utils.Info("Setting budget to zero for asset with expired buyout", "file", a.Filename)
		v.PushZeroBudget(ctx, a)
		a.Budget = 0
	}

	if report != nil {
		report.Record(a)
	}
	return a
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolOrNil(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
