package asset

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid_Table(t *testing.T) {
	tests := []struct {
		name     string
		asset    Asset
		expected bool
	}{
		{
			name:     "all checks pass",
			asset:    Asset{IsValidName: true, IsBuyoutValid: true, QualityScore: Float(8), IsPrivacyCompliant: Bool(true)},
			expected: true,
		},
		{
			name:     "invalid name",
			asset:    Asset{IsValidName: false, IsBuyoutValid: true, QualityScore: Float(8), IsPrivacyCompliant: Bool(true)},
			expected: false,
		},
		{
			name:     "buyout invalid, quality exactly 5",
			asset:    Asset{IsValidName: true, IsBuyoutValid: false, QualityScore: Float(5), IsPrivacyCompliant: Bool(true)},
			expected: false,
		},
		{
			name:     "buyout invalid, quality just above 5",
			asset:    Asset{IsValidName: true, IsBuyoutValid: false, QualityScore: Float(5.0001), IsPrivacyCompliant: Bool(true)},
			expected: true,
		},
		{
			name:     "buyout invalid, quality unknown",
			asset:    Asset{IsValidName: true, IsBuyoutValid: false, IsPrivacyCompliant: Bool(true)},
			expected: false,
		},
		{
			name:     "buyout valid, quality unknown",
			asset:    Asset{IsValidName: true, IsBuyoutValid: true, IsPrivacyCompliant: Bool(true)},
			expected: true,
		},
		{
			name:     "privacy unknown",
			asset:    Asset{IsValidName: true, IsBuyoutValid: true, QualityScore: Float(9)},
			expected: false,
		},
		{
			name:     "privacy false",
			asset:    Asset{IsValidName: true, IsBuyoutValid: true, QualityScore: Float(9), IsPrivacyCompliant: Bool(false)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.asset.IsValid())
		})
	}
}

// IsValid должен совпадать с формулой на случайных комбинациях полей.
func TestIsValid_RandomizedMatchesFormula(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	scores := []*float64{nil, Float(0), Float(5), Float(5.0001), Float(7.5)}
	privacy := []*bool{nil, Bool(false), Bool(true)}

	for i := 0; i < 500; i++ {
		a := Asset{
			IsValidName:        rng.Intn(2) == 1,
			IsBuyoutValid:      rng.Intn(2) == 1,
			QualityScore:       scores[rng.Intn(len(scores))],
			IsPrivacyCompliant: privacy[rng.Intn(len(privacy))],
		}

		qualityOK := a.QualityScore != nil && *a.QualityScore > 5
		privacyOK := a.IsPrivacyCompliant != nil && *a.IsPrivacyCompliant
		want := a.IsValidName && (a.IsBuyoutValid || qualityOK) && privacyOK

		require.Equal(t, want, a.IsValid(), "combination %+v", a)
	}
}

func TestRates(t *testing.T) {
	tests := []struct {
		name        string
		clicks      *int
		impressions *int
		conversions *int
		wantCTR     float64
		wantCTROK   bool
		wantCVR     float64
		wantCVROK   bool
	}{
		{"all present", Int(50), Int(1000), Int(1), 0.05, true, 0.02, true},
		{"zero impressions", Int(50), Int(0), Int(1), 0, false, 0.02, true},
		{"impressions absent", Int(50), nil, Int(1), 0, false, 0.02, true},
		{"clicks absent", nil, Int(1000), Int(1), 0, false, 0, false},
		{"zero clicks", Int(0), Int(1000), Int(1), 0, true, 0, false},
		{"conversions absent", Int(10), Int(100), nil, 0.1, true, 0, false},
		{"nothing known", nil, nil, nil, 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Asset{Clicks: tt.clicks, Impressions: tt.impressions, Conversions: tt.conversions}

			ctr, ok := a.ClickThroughRate()
			assert.Equal(t, tt.wantCTROK, ok)
			assert.InDelta(t, tt.wantCTR, ctr, 1e-9)

			cvr, ok := a.ConversionRate()
			assert.Equal(t, tt.wantCVROK, ok)
			assert.InDelta(t, tt.wantCVR, cvr, 1e-9)
		})
	}
}

func TestPerformanceScore(t *testing.T) {
	a := Asset{Clicks: Int(50), Impressions: Int(1000), Conversions: Int(1)}
	assert.InDelta(t, 0.05*0.4+0.02*0.6, a.PerformanceScore(), 1e-9)

	// Без метрик score всё равно определён и равен нулю
	empty := Asset{}
	assert.Equal(t, 0.0, empty.PerformanceScore())

	// CVR без CTR
	onlyCVR := Asset{Clicks: Int(10), Conversions: Int(5)}
	assert.InDelta(t, 0.5*0.6, onlyCVR.PerformanceScore(), 1e-9)
}

func TestUpdateBudget_RecordsHistory(t *testing.T) {
	a := Asset{Budget: 100}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a.UpdateBudget(120, "Top performer", at)

	require.NotNil(t, a.PreviousBudget)
	assert.Equal(t, 100, *a.PreviousBudget)
	assert.Equal(t, 120, a.Budget)
	require.NotNil(t, a.BudgetUpdatedAt)
	assert.True(t, at.Equal(*a.BudgetUpdatedAt))
	assert.Equal(t, "Top performer", a.BudgetUpdateReason)
}
