// Package budget перераспределяет бюджеты креативов внутри объявления
// по их эффективности.
//
// Креативы группируются по ad_id. Одиночный креатив сравнивается
// с абсолютными порогами, в группе лучшая четверть получает прибавку,
// худшая четверть теряет бюджет, остальные не меняются.
package budget

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ilkoid/creative-sorter/pkg/ads"
	"github.com/ilkoid/creative-sorter/pkg/asset"
	"github.com/ilkoid/creative-sorter/pkg/config"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// Причины пропуска.
const (
	ReasonMissingAdID    = "Missing ad_id"
	ReasonMissingMetrics = "Missing performance metrics"
)

// Scorer возвращает score креатива; ok=false — метрик нет.
type Scorer func(a *asset.Asset) (float64, bool)

// DefaultScorer — PerformanceScore, который определён всегда.
func DefaultScorer(a *asset.Asset) (float64, bool) {
	return a.PerformanceScore(), true
}

// Manager применяет правила перераспределения через BudgetUpdater.
type Manager struct {
	updater ads.BudgetUpdater
	cfg     config.BudgetConfig
	score   Scorer
	now     func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithScorer подменяет расчёт score.
func WithScorer(s Scorer) Option {
	return func(m *Manager) {
		if s != nil {
			m.score = s
		}
	}
}

// WithClock подменяет источник времени для истории бюджета.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New создаёт менеджер. Незаполненные поля cfg берутся из GetDefaults().
func New(updater ads.BudgetUpdater, cfg config.BudgetConfig, opts ...Option) *Manager {
	m := &Manager{
		updater: updater,
		cfg:     cfg.GetDefaults(),
		score:   DefaultScorer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IdentifyOutliers сортирует группу по score (по убыванию, стабильно) и
// возвращает первые и последние max(1, n/4) креативов.
//
// При n == 1 один и тот же креатив попадает в оба списка: одиночные группы
// обрабатываются отдельно и сюда не попадают.
func (m *Manager) IdentifyOutliers(assets []*asset.Asset) (top, low []*asset.Asset) {
	type scored struct {
		a     *asset.Asset
		score float64
	}

	withScores := make([]scored, 0, len(assets))
	for _, a := range assets {
		s, ok := m.score(a)
		if !ok {
			utils.Warn("Asset has no performance score, skipping", "file", a.Filename)
			continue
		}
		withScores = append(withScores, scored{a: a, score: s})
	}

	if len(withScores) == 0 {
		return nil, nil
	}

	sort.SliceStable(withScores, func(i, j int) bool {
		return withScores[i].score > withScores[j].score
	})

	total := len(withScores)
	k := max(1, total/4)

	for _, s := range withScores[:k] {
		top = append(top, s.a)
	}
	for _, s := range withScores[total-k:] {
		low = append(low, s.a)
	}

	utils.Debug("Identified performance outliers",
		"top", len(top),
		"low", len(low),
		"total", total)
	return top, low
}

// UpdateAssetBudget умножает бюджет креатива на factor и отправляет его платформе.
//
// Новый бюджет = floor(budget * factor). До maxRetries попыток; при успехе
// меняется история бюджета креатива и в ledger добавляется запись.
// Factor 1.0 тоже фиксируется как изменение.
func (m *Manager) UpdateAssetBudget(ctx context.Context, a *asset.Asset, factor float64, reason string, ledger *Ledger) bool {
	if a.AdID == "" || a.FileID == "" {
		utils.Warn("Asset missing ad_id or file_id, cannot update budget", "file", a.Filename)
		return false
	}

	newBudget := int(math.Floor(float64(a.Budget) * factor))

	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		res, err := m.updater.UpdateBudget(ctx, a.AdID, a.FileID, newBudget)
		if err != nil {
			utils.Error("Error updating budget",
				"file", a.Filename,
				"attempt", attempt,
				"error", err)
			continue
		}
		if res.Failed() {
			utils.Warn("Error updating budget",
				"file", a.Filename,
				"attempt", attempt,
				"max_retries", m.cfg.MaxRetries,
				"error", res.Error)
			continue
		}

		at := m.now()
		a.UpdateBudget(newBudget, reason, at)

		if ledger != nil {
			ledger.Changes = append(ledger.Changes, Change{
				Filename:         a.Filename,
				AdID:             a.AdID,
				PreviousBudget:   *a.PreviousBudget,
				NewBudget:        newBudget,
				AdjustmentFactor: factor,
				Reason:           reason,
				Timestamp:        at,
			})
		}

		utils.Info("Budget updated",
			"file", a.Filename,
			"from", *a.PreviousBudget,
			"to", newBudget,
			"reason", reason)
		return true
	}

	utils.Error("Max retries reached for updating budget", "file", a.Filename)
	return false
}

// AdjustBudgetsByPerformance перераспределяет бюджеты по группам объявлений.
//
// Счётчики Increased/Decreased растут только при подтверждённом платформой
// изменении. Группы обрабатываются в порядке первого появления ad_id.
func (m *Manager) AdjustBudgetsByPerformance(ctx context.Context, assets []*asset.Asset) *Summary {
	utils.Info("Starting budget adjustment", "assets", len(assets))

	summary := &Summary{TotalAssets: len(assets)}
	ledger := &summary.Ledger

	// 1. Фильтр
	var eligible []*asset.Asset
	for _, a := range assets {
		if a.AdID == "" {
			ledger.Skipped = append(ledger.Skipped, Skipped{
				Filename: a.Filename,
				Reason:   ReasonMissingAdID,
				AssetID:  a.FileID,
			})
			utils.Warn("Asset has no ad_id, skipping budget adjustment", "file", a.Filename)
			continue
		}
		if _, ok := m.score(a); !ok {
			ledger.Skipped = append(ledger.Skipped, Skipped{
				Filename: a.Filename,
				Reason:   ReasonMissingMetrics,
				AssetID:  a.FileID,
				AdID:     a.AdID,
			})
			utils.Warn("Asset has no performance metrics, skipping budget adjustment", "file", a.Filename)
			continue
		}
		eligible = append(eligible, a)
	}
	summary.ValidAssets = len(eligible)

	// 2. Группировка
	order, groups := groupByAd(eligible)
	summary.TotalAds = len(order)
	utils.Info("Grouped assets by ad", "eligible", len(eligible), "ads", len(order))

	// 3. Правила
	for _, adID := range order {
		group := groups[adID]
		if len(group) == 1 {
			m.adjustSingle(ctx, group[0], summary)
			continue
		}
		m.adjustGroup(ctx, adID, group, summary)
	}

	utils.Info("Budget adjustment completed",
		"increased", summary.Increased,
		"decreased", summary.Decreased,
		"unchanged", summary.Unchanged)
	return summary
}

func (m *Manager) adjustSingle(ctx context.Context, a *asset.Asset, summary *Summary) {
	score, _ := m.score(a)
	utils.Debug("Ad has only one asset, using absolute thresholds", "ad_id", a.AdID, "score", score)

	switch {
	case score > m.cfg.HighThreshold:
		reason := "Single high-performing asset - " + increaseText(m.cfg.IncreaseFactor)
		if m.UpdateAssetBudget(ctx, a, m.cfg.IncreaseFactor, reason, &summary.Ledger) {
			summary.Increased++
		}
	case score < m.cfg.LowThreshold:
		reason := "Single low-performing asset - " + decreaseText(m.cfg.DecreaseFactor)
		if m.UpdateAssetBudget(ctx, a, m.cfg.DecreaseFactor, reason, &summary.Ledger) {
			summary.Decreased++
		}
	default:
		summary.Ledger.UnchangedAssets = append(summary.Ledger.UnchangedAssets,
			unchangedEntry(a, score, "Single asset with average performance - budget unchanged"))
		summary.Unchanged++
	}
}

func (m *Manager) adjustGroup(ctx context.Context, adID string, group []*asset.Asset, summary *Summary) {
	utils.Debug("Processing ad", "ad_id", adID, "assets", len(group))

	top, low := m.IdentifyOutliers(group)

	outliers := make(map[*asset.Asset]bool, len(top)+len(low))
	for _, a := range top {
		outliers[a] = true
	}
	for _, a := range low {
		outliers[a] = true
	}

	for _, a := range top {
		if m.UpdateAssetBudget(ctx, a, m.cfg.IncreaseFactor, "Top performer - "+increaseText(m.cfg.IncreaseFactor), &summary.Ledger) {
			summary.Increased++
		}
	}
	for _, a := range low {
		if m.UpdateAssetBudget(ctx, a, m.cfg.DecreaseFactor, "Low performer - "+decreaseText(m.cfg.DecreaseFactor), &summary.Ledger) {
			summary.Decreased++
		}
	}

	for _, a := range group {
		if outliers[a] {
			continue
		}
		score, _ := m.score(a)
		summary.Ledger.UnchangedAssets = append(summary.Ledger.UnchangedAssets,
			unchangedEntry(a, score, "Average performer - budget unchanged"))
		summary.Unchanged++
	}
}

// groupByAd группирует креативы по ad_id, сохраняя порядок первого появления.
func groupByAd(assets []*asset.Asset) ([]string, map[string][]*asset.Asset) {
	var order []string
	groups := make(map[string][]*asset.Asset)
	for _, a := range assets {
		if a.AdID == "" {
			continue
		}
		if _, seen := groups[a.AdID]; !seen {
			order = append(order, a.AdID)
		}
		groups[a.AdID] = append(groups[a.AdID], a)
	}
	return order, groups
}

func unchangedEntry(a *asset.Asset, score float64, reason string) Unchanged {
	return Unchanged{
		Filename:         a.Filename,
		Reason:           reason,
		AssetID:          a.FileID,
		AdID:             a.AdID,
		Budget:           a.Budget,
		PerformanceScore: score,
	}
}

func increaseText(factor float64) string {
	return fmt.Sprintf("budget increased by %d%%", percent(factor-1))
}

func decreaseText(factor float64) string {
	return fmt.Sprintf("budget decreased by %d%%", percent(1-factor))
}

func percent(delta float64) int {
	return int(math.Round(delta * 100))
}
