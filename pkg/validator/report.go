package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/ilkoid/creative-sorter/pkg/asset"
)

// Имена файлов отчёта в каталоге прогона.
const (
	ReportJSONFile    = "validation_report.json"
	InvalidAssetsFile = "invalid_assets.txt"
	ErrorReportFile   = "error_report.txt"
)

const reportWrapWidth = 100

// InvalidEntry — невалидный креатив и причины.
type InvalidEntry struct {
	Filename string   `json:"filename"`
	Reasons  []string `json:"reasons"`
}

// ErrorEntry — файл, на котором упал сам конвейер.
type ErrorEntry struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// Report накапливает результаты валидации за прогон.
// Создаётся вызывающим и передаётся в ValidateAsset явно.
type Report struct {
	Valid   []string
	Invalid []InvalidEntry
	Errors  []ErrorEntry
}

// Summary — сводка для validation_report.json.
// TotalAssets считает только провалидированные файлы, без ошибок конвейера.
type Summary struct {
	TotalAssets    int            `json:"total_assets"`
	ValidAssets    int            `json:"valid_assets"`
	InvalidAssets  int            `json:"invalid_assets"`
	Errors         int            `json:"errors"`
	InvalidDetails []InvalidEntry `json:"invalid_details"`
	ErrorDetails   []ErrorEntry   `json:"error_details"`
}

// Record добавляет креатив в valid или invalid по IsValid.
func (r *Report) Record(a *asset.Asset) {
	if a.IsValid() {
		r.Valid = append(r.Valid, a.Filename)
		return
	}
	r.Invalid = append(r.Invalid, InvalidEntry{
		Filename: a.Filename,
		Reasons:  FailureReasons(a),
	})
}

// AddError фиксирует сбой обработки файла.
func (r *Report) AddError(filename string, err error) {
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Errors = append(r.Errors, ErrorEntry{Filename: filename, Error: msg})
}

// Reset очищает отчёт перед новым прогоном.
func (r *Report) Reset() {
	r.Valid = nil
	r.Invalid = nil
	r.Errors = nil
}

func (r *Report) Summary() Summary {
	invalid := r.Invalid
	if invalid == nil {
		invalid = []InvalidEntry{}
	}
	errs := r.Errors
	if errs == nil {
		errs = []ErrorEntry{}
	}
	return Summary{
		TotalAssets:    len(r.Valid) + len(r.Invalid),
		ValidAssets:    len(r.Valid),
		InvalidAssets:  len(r.Invalid),
		Errors:         len(r.Errors),
		InvalidDetails: invalid,
		ErrorDetails:   errs,
	}
}

// FailureReasons выводит причины из полей валидации креатива.
func FailureReasons(a *asset.Asset) []string {
	var reasons []string

	if !a.IsValidName {
		reasons = append(reasons, "Invalid filename format")
	}
	if !a.IsBuyoutValid {
		reasons = append(reasons, "Expired or invalid buyout code")
	}

	switch {
	case a.QualityScore == nil:
		reasons = append(reasons, "Quality check failed")
	case *a.QualityScore <= 5:
		reasons = append(reasons, "Low quality score: "+strconv.FormatFloat(*a.QualityScore, 'f', -1, 64))
	}

	switch {
	case a.IsPrivacyCompliant == nil:
		reasons = append(reasons, "Privacy compliance check failed")
	case !*a.IsPrivacyCompliant:
		reasons = append(reasons, "Not privacy compliant")
	}

	return reasons
}

// WriteReport пишет validation_report.json и, если есть что писать,
// invalid_assets.txt и error_report.txt.
func (r *Report) WriteReport(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	summary := r.Summary()

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal validation report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportJSONFile), data, 0644); err != nil {
		return fmt.Errorf("write validation report: %w", err)
	}

	if summary.InvalidAssets > 0 {
		var b strings.Builder
		b.WriteString("INVALID ASSETS REPORT\n")
		b.WriteString("====================\n\n")
		for _, item := range summary.InvalidDetails {
			fmt.Fprintf(&b, "Filename: %s\n", item.Filename)
			b.WriteString("Reasons:\n")
			for _, reason := range item.Reasons {
				b.WriteString(bullet(reason))
			}
			b.WriteString("\n")
		}
		if err := os.WriteFile(filepath.Join(dir, InvalidAssetsFile), []byte(b.String()), 0644); err != nil {
			return fmt.Errorf("write invalid assets report: %w", err)
		}
	}

	if summary.Errors > 0 {
		var b strings.Builder
		b.WriteString("ERROR REPORT\n")
		b.WriteString("============\n\n")
		for _, item := range summary.ErrorDetails {
			fmt.Fprintf(&b, "Filename: %s\n", item.Filename)
			b.WriteString("Error: ")
			b.WriteString(strings.TrimPrefix(indent.String(wordwrap.String(item.Error, reportWrapWidth), 7), "       "))
			b.WriteString("\n\n")
		}
		if err := os.WriteFile(filepath.Join(dir, ErrorReportFile), []byte(b.String()), 0644); err != nil {
			return fmt.Errorf("write error report: %w", err)
		}
	}

	return nil
}

// bullet форматирует пункт списка, перенося длинные строки с отступом.
func bullet(text string) string {
	wrapped := wordwrap.String(text, reportWrapWidth-2)
	return "- " + strings.TrimPrefix(indent.String(wrapped, 2), "  ") + "\n"
}
