// Package reorganizer выполняет один прогон раскладки креативов.
//
// Прогон:
//  1. читает уровни иерархии, таблицу выкупов и метрики из выгрузки
//  2. листает исходный префикс хранилища и разбирает имена файлов
//  3. для каждого файла: обогащение, скачивание, обработка, валидация,
//     загрузка валидных креативов в папки иерархии
//  4. пишет отчёт валидации и перераспределяет бюджеты валидных креативов
//
// Сбой на одном файле попадает в отчёт и не останавливает прогон.
package reorganizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ilkoid/creative-sorter/pkg/asset"
	"github.com/ilkoid/creative-sorter/pkg/budget"
	"github.com/ilkoid/creative-sorter/pkg/classifier"
	"github.com/ilkoid/creative-sorter/pkg/hierarchy"
	"github.com/ilkoid/creative-sorter/pkg/s3storage"
	"github.com/ilkoid/creative-sorter/pkg/utils"
	"github.com/ilkoid/creative-sorter/pkg/validator"
)

// ErrNoHierarchy — в выгрузке нет ни одного уровня иерархии.
var ErrNoHierarchy = errors.New("no hierarchy levels defined in UI settings")

// Source — данные выгрузки, нужные прогону.
type Source interface {
	HierarchySettings() hierarchy.Settings
	Buyouts() map[string]string
	BuildAsset(filename string, attrs classifier.Attributes) *asset.Asset
}

// ImageProcessor готовит файл к анализу и загрузке.
type ImageProcessor func(inputPath, outputPath string, maxSizeKB int) error

// Options — пути и префиксы прогона.
type Options struct {
	SourcePrefix string
	TargetPrefix string
	WorkDir      string // сюда скачиваются и обрабатываются файлы
	ReportsDir   string // внутри создаётся каталог на каждый прогон
	MaxSizeKB    int
	KeepFiles    bool // не удалять временные файлы после обработки
}

// Reorganizer связывает хранилище, выгрузку, валидатор и менеджер бюджета.
type Reorganizer struct {
	storage   s3storage.Storage
	source    Source
	validator *validator.Validator
	budgets   *budget.Manager
	classify  *classifier.Engine
	process   ImageProcessor
	opts      Options
}

// New создаёт Reorganizer. Обработка изображений по умолчанию — utils.ProcessImage.
func New(storage s3storage.Storage, source Source, v *validator.Validator, b *budget.Manager, opts Options) *Reorganizer {
	if opts.WorkDir == "" {
		opts.WorkDir = "tmp"
	}
	if opts.ReportsDir == "" {
		opts.ReportsDir = filepath.Join(opts.WorkDir, "reports")
	}
	if opts.MaxSizeKB <= 0 {
		opts.MaxSizeKB = 100
	}

	return &Reorganizer{
		storage:   storage,
		source:    source,
		validator: v,
		budgets:   b,
		classify:  classifier.New(),
		process:   utils.ProcessImage,
		opts:      opts,
	}
}

// WithImageProcessor подменяет обработку изображений.
func (r *Reorganizer) WithImageProcessor(p ImageProcessor) *Reorganizer {
	if p != nil {
		r.process = p
	}
	return r
}

// Result — итог прогона.
type Result struct {
	RunID      string
	ReportsDir string
	StartedAt  time.Time
	Duration   time.Duration

	Listed    int
	Skipped   []string // имена не по соглашению
	Processed []*asset.Asset
	Uploaded  []string // ключи загруженных объектов

	Validation validator.Summary
	Budget     *budget.Summary // nil если перераспределение не выполнялось
	BudgetFile string
}

// Run выполняет один прогон.
//
// Ошибка возвращается только когда прогон невозможен целиком: нет иерархии,
// не удалось получить листинг, не удалось записать отчёт.
func (r *Reorganizer) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	res.ReportsDir = filepath.Join(r.opts.ReportsDir, res.RunID)

	utils.Info("Starting asset reorganization", "run_id", res.RunID)

	settings := r.source.HierarchySettings()
	if len(settings.Levels) == 0 {
		utils.Error("No hierarchy levels defined in UI settings", "run_id", res.RunID)
		return res, ErrNoHierarchy
	}
	utils.Info("Hierarchy levels", "fields", settings.FieldNames())

	buyouts := r.source.Buyouts()
	utils.Info("Loaded buyout codes", "count", len(buyouts))

	objects, err := r.storage.ListFiles(ctx, r.opts.SourcePrefix)
	if err != nil {
		return res, fmt.Errorf("list source files: %w", err)
	}
	res.Listed = len(objects)
	utils.Info("Found files in source prefix", "prefix", r.opts.SourcePrefix, "count", len(objects))

	classified := r.classify.Process(objects)
	res.Skipped = classified.Skipped

	report := &validator.Report{}

	for _, file := range classified.Parsed {
		if err := ctx.Err(); err != nil {
			utils.Warn("Run cancelled, stopping file loop", "run_id", res.RunID)
			break
		}

		a, key, err := r.processFile(ctx, file, settings, buyouts, report)
		if a != nil {
			res.Processed = append(res.Processed, a)
		}
		if err != nil {
			utils.Error("Failed to process file", "file", file.Object.Filename(), "error", err)
			report.AddError(file.Object.Filename(), err)
			continue
		}
		if key != "" {
			res.Uploaded = append(res.Uploaded, key)
		}
	}

	res.Validation = report.Summary()
	if len(res.Processed) > 0 || len(report.Errors) > 0 {
		if err := report.WriteReport(res.ReportsDir); err != nil {
			return res, err
		}
		utils.Info("Validation report saved",
			"dir", res.ReportsDir,
			"total", res.Validation.TotalAssets,
			"valid", res.Validation.ValidAssets,
			"invalid", res.Validation.InvalidAssets,
			"errors", res.Validation.Errors)
	}

	if err := r.adjustBudgets(ctx, res); err != nil {
		return res, err
	}

	res.Duration = time.Since(res.StartedAt)
	utils.Info("Asset reorganization completed",
		"run_id", res.RunID,
		"processed", len(res.Processed),
		"uploaded", len(res.Uploaded),
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// processFile проводит один файл через конвейер.
// Возвращает ключ загруженного объекта или пустую строку, если креатив невалиден.
// Если сбой случился после валидации (загрузка в иерархию), креатив возвращается
// вместе с ошибкой: он уже учтён в отчёте и участвует в перераспределении бюджета.
func (r *Reorganizer) processFile(
	ctx context.Context,
	file classifier.ParsedFile,
	settings hierarchy.Settings,
	buyouts map[string]string,
	report *validator.Report,
) (*asset.Asset, string, error) {
	filename := file.Object.Filename()
	utils.Info("Processing file", "file", filename)

	a := r.source.BuildAsset(filename, file.Attributes)

	localPath := filepath.Join(r.opts.WorkDir, "assets", filename)
	processedPath := filepath.Join(r.opts.WorkDir, "processed_assets", "processed_"+filename)
	if !r.opts.KeepFiles {
		defer os.Remove(localPath)
		defer os.Remove(processedPath)
	}

	if err := r.storage.DownloadToFile(ctx, file.Object.Key, localPath); err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(processedPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("create processed dir: %w", err)
	}
	if err := r.process(localPath, processedPath, r.opts.MaxSizeKB); err != nil {
		return nil, "", fmt.Errorf("process image: %w", err)
	}

	r.validator.ValidateAsset(ctx, a, processedPath, buyouts, report)

	if !a.IsValid() {
		utils.Warn("Asset failed validation, skipping upload", "file", filename)
		return a, "", nil
	}

	segments := hierarchy.Resolve(a, settings)
	utils.Info("Hierarchy path", "file", filename, "path", segments)

	key, err := r.uploadToHierarchy(ctx, processedPath, segments, filename)
	if err != nil {
		return a, "", err
	}
	return a, key, nil
}

// uploadToHierarchy создаёт недостающие папки уровень за уровнем и загружает файл.
func (r *Reorganizer) uploadToHierarchy(ctx context.Context, localPath string, segments []string, filename string) (string, error) {
	for i := range segments {
		folder := hierarchy.Path(r.opts.TargetPrefix, segments[:i+1], "")
		if err := r.storage.EnsureFolder(ctx, folder); err != nil {
			return "", fmt.Errorf("ensure folder %s: %w", folder, err)
		}
	}

	key := hierarchy.Path(r.opts.TargetPrefix, segments, filename)
	if err := r.storage.UploadFile(ctx, localPath, key); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	utils.Info("Uploaded to target folder", "file", filename, "key", key)
	return key, nil
}

// adjustBudgets перераспределяет бюджеты среди валидных креативов.
func (r *Reorganizer) adjustBudgets(ctx context.Context, res *Result) error {
	if r.budgets == nil || len(res.Processed) == 0 {
		return nil
	}

	var valid []*asset.Asset
	for _, a := range res.Processed {
		if a.IsValid() {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		utils.Warn("No valid assets with performance data found, skipping budget updates")
		return nil
	}

	summary := r.budgets.AdjustBudgetsByPerformance(ctx, valid)
	res.Budget = summary

	path, err := budget.WriteReport(res.ReportsDir, summary)
	if err != nil {
		return err
	}
	res.BudgetFile = path

	utils.Info("Budget update summary",
		"total_assets", summary.TotalAssets,
		"total_ads", summary.TotalAds,
		"increased", summary.Increased,
		"decreased", summary.Decreased,
		"unchanged", summary.Unchanged,
		"report", path)
	return nil
}
