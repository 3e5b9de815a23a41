// Package asset описывает маркетинговый креатив и его производные метрики.
//
// Asset создаётся один раз на файл за прогон, дальше мутирует по месту:
// валидатор заполняет поля валидации, менеджер бюджета заполняет историю бюджета.
package asset

import "time"

// DefaultBudget используется когда источник метрик не знает бюджет креатива.
const DefaultBudget = 1000

// Веса в PerformanceScore.
const (
	ctrWeight = 0.4
	cvrWeight = 0.6
)

// qualityThreshold — score строго выше порога компенсирует невалидный выкуп.
const qualityThreshold = 5.0

// Asset — один файл креатива и его состояние.
type Asset struct {
	Filename string
	FileID   string // ID во внешних системах, пусто = неизвестен

	// Атрибуты из имени файла
	Country         string
	Language        string
	BuyoutCode      string
	Concept         string
	Audience        string
	TransactionSide string
	AssetFormat     string
	Duration        string
	FileFormat      string

	// Обогащение из таблицы метрик
	ProductionDate *time.Time
	MimeType       string
	Budget         int
	AdID           string
	Clicks         *int
	Impressions    *int
	Conversions    *int

	// Состояние валидации
	IsValidName        bool
	IsBuyoutValid      bool
	QualityScore       *float64
	IsPrivacyCompliant *bool

	// История бюджета
	PreviousBudget     *int
	BudgetUpdatedAt    *time.Time
	BudgetUpdateReason string
}

// ClickThroughRate возвращает clicks/impressions.
// ok=false если показов нет (nil или 0) или неизвестны клики.
func (a *Asset) ClickThroughRate() (float64, bool) {
	if a.Impressions == nil || *a.Impressions <= 0 || a.Clicks == nil {
		return 0, false
	}
	return float64(*a.Clicks) / float64(*a.Impressions), true
}

// ConversionRate возвращает conversions/clicks.
// ok=false если кликов нет (nil или 0) или неизвестны конверсии.
func (a *Asset) ConversionRate() (float64, bool) {
	if a.Clicks == nil || *a.Clicks <= 0 || a.Conversions == nil {
		return 0, false
	}
	return float64(*a.Conversions) / float64(*a.Clicks), true
}

// PerformanceScore — взвешенная сумма CTR и CVR.
// Неопределённые метрики считаются нулём, поэтому score определён всегда.
func (a *Asset) PerformanceScore() float64 {
	ctr, _ := a.ClickThroughRate()
	cvr, _ := a.ConversionRate()
	return ctr*ctrWeight + cvr*cvrWeight
}

// IsValid вычисляется из четырёх полей валидации и нигде не кэшируется.
//
// Правило: валидное имя И (валидный выкуп ИЛИ качество > 5) И подтверждённая
// privacy-совместимость.
func (a *Asset) IsValid() bool {
	qualityOK := a.QualityScore != nil && *a.QualityScore > qualityThreshold
	privacyOK := a.IsPrivacyCompliant != nil && *a.IsPrivacyCompliant
	return a.IsValidName && (a.IsBuyoutValid || qualityOK) && privacyOK
}

// UpdateBudget меняет бюджет и запоминает предыдущее значение.
func (a *Asset) UpdateBudget(newBudget int, reason string, at time.Time) {
	prev := a.Budget
	a.PreviousBudget = &prev
	a.Budget = newBudget
	a.BudgetUpdatedAt = &at
	a.BudgetUpdateReason = reason
}

// Int возвращает указатель на v. Удобно для заполнения счётчиков.
func Int(v int) *int { return &v }

// Float возвращает указатель на v.
func Float(v float64) *float64 { return &v }

// Bool возвращает указатель на v.
func Bool(v bool) *bool { return &v }
