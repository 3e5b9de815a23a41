package main

import (
	"fmt"

	"github.com/ilkoid/creative-sorter/internal/reorganizer"
	"github.com/ilkoid/creative-sorter/pkg/ads"
	"github.com/ilkoid/creative-sorter/pkg/budget"
	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/s3storage"
	"github.com/ilkoid/creative-sorter/pkg/validator"
	"github.com/ilkoid/creative-sorter/pkg/vision"
	"github.com/ilkoid/creative-sorter/pkg/workbook"
)

// buildAnalyzer выбирает vision модель из конфига; demo_key включает симулятор.
func buildAnalyzer(cfg *config.AppConfig) (vision.Analyzer, error) {
	modelDef, ok := cfg.GetVisionModel("")
	if !ok {
		return nil, fmt.Errorf("vision model is not configured: set models.default_vision")
	}
	return vision.NewAnalyzer(modelDef.APIKey, func() vision.Analyzer {
		return vision.NewOpenAIAnalyzer(modelDef, cfg.ImageProcessing)
	}), nil
}

// buildReorganizer собирает прогон из конфигурации.
// Выгрузка перечитывается на каждый прогон, чтобы расписание видело свежие метрики.
func buildReorganizer(cfg *config.AppConfig, keepFiles bool) (*reorganizer.Reorganizer, error) {
	storage, err := s3storage.New(cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	wb, err := workbook.Load(cfg.Workbook.Path)
	if err != nil {
		return nil, err
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	updater, err := ads.NewUpdater(cfg.Ads)
	if err != nil {
		return nil, fmt.Errorf("ads client: %w", err)
	}

	v := validator.New(analyzer, updater, validator.WithMaxRetries(cfg.Validation.MaxRetries))
	b := budget.New(updater, cfg.Budget)

	return reorganizer.New(storage, wb, v, b, reorganizer.Options{
		SourcePrefix: cfg.S3.SourcePrefix,
		TargetPrefix: cfg.S3.TargetPrefix,
		WorkDir:      cfg.App.TmpDir,
		ReportsDir:   cfg.App.ReportsDir,
		MaxSizeKB:    cfg.ImageProcessing.MaxSizeKB,
		KeepFiles:    keepFiles,
	}), nil
}
