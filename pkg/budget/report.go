package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Имена файлов отчёта.
const (
	ChangesJSONFile = "budget_changes.json"
	ReportTextFile  = "budget_report.txt"
)

// Change — подтверждённое изменение бюджета.
type Change struct {
	Filename         string    `json:"filename"`
	AdID             string    `json:"ad_id"`
	PreviousBudget   int       `json:"previous_budget"`
	NewBudget        int       `json:"new_budget"`
	AdjustmentFactor float64   `json:"adjustment_factor"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
}

// Skipped — креатив, не попавший в перераспределение.
type Skipped struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
	AssetID  string `json:"asset_id"`
	AdID     string `json:"ad_id,omitempty"`
}

// Unchanged — креатив, бюджет которого сознательно не трогали.
type Unchanged struct {
	Filename         string  `json:"filename"`
	Reason           string  `json:"reason"`
	AssetID          string  `json:"asset_id"`
	AdID             string  `json:"ad_id"`
	Budget           int     `json:"budget"`
	PerformanceScore float64 `json:"performance_score"`
}

// Ledger — журнал одного прогона перераспределения.
type Ledger struct {
	Changes         []Change    `json:"changes"`
	Skipped         []Skipped   `json:"skipped"`
	UnchangedAssets []Unchanged `json:"unchanged"`
}

// Summary — итог AdjustBudgetsByPerformance.
type Summary struct {
	TotalAssets int `json:"total_assets"`
	ValidAssets int `json:"valid_assets"`
	TotalAds    int `json:"total_ads"`
	Increased   int `json:"budgets_increased"`
	Decreased   int `json:"budgets_decreased"`
	Unchanged   int `json:"budgets_unchanged"`

	Ledger
}

// WriteReport пишет budget_changes.json и budget_report.txt в dir.
// Возвращает путь к текстовому отчёту.
func WriteReport(dir string, s *Summary) (string, error) {
	if s == nil {
		s = &Summary{}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	full := Ledger{
		Changes:         nonNil(s.Changes),
		Skipped:         nonNil(s.Skipped),
		UnchangedAssets: nonNil(s.UnchangedAssets),
	}
	data, err := json.MarshalIndent(full, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal budget changes: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ChangesJSONFile), data, 0644); err != nil {
		return "", fmt.Errorf("write budget changes: %w", err)
	}

	reportPath := filepath.Join(dir, ReportTextFile)
	if err := os.WriteFile(reportPath, []byte(renderText(s)), 0644); err != nil {
		return "", fmt.Errorf("write budget report: %w", err)
	}
	return reportPath, nil
}

func renderText(s *Summary) string {
	var b strings.Builder

	b.WriteString("BUDGET ADJUSTMENT REPORT\n")
	b.WriteString("=======================\n\n")

	b.WriteString("SUMMARY:\n")
	b.WriteString("--------\n")
	fmt.Fprintf(&b, "Total budget changes: %d\n", len(s.Changes))
	fmt.Fprintf(&b, "Skipped assets: %d\n", len(s.Skipped))
	fmt.Fprintf(&b, "Unchanged assets: %d\n\n", len(s.UnchangedAssets))

	if len(s.Changes) > 0 {
		writeChanges(&b, "BUDGET INCREASES:", "No budget increases in this run.",
			filterChanges(s.Changes, func(f float64) bool { return f > 1 }))
		writeChanges(&b, "BUDGET DECREASES:", "No budget decreases in this run.",
			filterChanges(s.Changes, func(f float64) bool { return f < 1 }))
	} else {
		b.WriteString("No budget changes were made in this run.\n\n")
	}

	b.WriteString("UNCHANGED ASSETS:\n")
	b.WriteString("-----------------\n")
	if len(s.UnchangedAssets) == 0 {
		b.WriteString("No unchanged assets in this run.\n\n")
	}
	for _, u := range s.UnchangedAssets {
		fmt.Fprintf(&b, "Asset: %s\n", u.Filename)
		fmt.Fprintf(&b, "Ad ID: %s\n", orNA(u.AdID))
		fmt.Fprintf(&b, "Current budget: %d\n", u.Budget)
		fmt.Fprintf(&b, "Performance score: %s\n", strconv.FormatFloat(u.PerformanceScore, 'f', -1, 64))
		fmt.Fprintf(&b, "Reason: %s\n\n", u.Reason)
	}

	b.WriteString("SKIPPED ASSETS:\n")
	b.WriteString("--------------\n")
	if len(s.Skipped) == 0 {
		b.WriteString("No assets were skipped in this run.\n")
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(&b, "Asset: %s\n", sk.Filename)
		fmt.Fprintf(&b, "Asset ID: %s\n", orNA(sk.AssetID))
		if sk.AdID != "" {
			fmt.Fprintf(&b, "Ad ID: %s\n", sk.AdID)
		}
		fmt.Fprintf(&b, "Reason: %s\n\n", sk.Reason)
	}

	return b.String()
}

func writeChanges(b *strings.Builder, title, empty string, changes []Change) {
	b.WriteString(title + "\n")
	b.WriteString("-----------------\n")
	if len(changes) == 0 {
		b.WriteString(empty + "\n\n")
		return
	}
	for _, c := range changes {
		fmt.Fprintf(b, "Asset: %s\n", c.Filename)
		fmt.Fprintf(b, "Ad ID: %s\n", orNA(c.AdID))
		fmt.Fprintf(b, "Previous budget: %d\n", c.PreviousBudget)
		fmt.Fprintf(b, "New budget: %d\n", c.NewBudget)
		fmt.Fprintf(b, "Reason: %s\n\n", c.Reason)
	}
}

func filterChanges(changes []Change, keep func(factor float64) bool) []Change {
	var out []Change
	for _, c := range changes {
		if keep(c.AdjustmentFactor) {
			out = append(out, c)
		}
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
