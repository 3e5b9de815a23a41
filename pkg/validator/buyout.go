package validator

import (
	"strings"
	"time"

	"github.com/ilkoid/creative-sorter/pkg/asset"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// expiryLayouts перебираются по порядку, побеждает первый подошедший.
// Поэтому "03/04/2024" читается как 3 апреля (день/месяц).
var expiryLayouts = []string{
	"2/1/2006",
	"1/2/2006",
	"2006-1-2",
	"2006/1/2",
}

// ParseExpiry разбирает дату окончания выкупа в локальной зоне (полночь).
func ParseExpiry(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range expiryLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateBuyout проверяет что код выкупа известен и не истёк.
//
// Выкуп истёк, если текущее время строго позже полуночи даты окончания.
func (v *Validator) ValidateBuyout(a *asset.Asset, buyouts map[string]string) bool {
	code := a.BuyoutCode
	if code == "" {
		utils.Warn("Asset has no buyout code", "file", a.Filename)
		return false
	}

	expiryStr, known := buyouts[code]
	if !known {
		utils.Warn("Unknown buyout code", "file", a.Filename, "buyout_code", code)
		return false
	}
	if expiryStr == "" {
		utils.Warn("Buyout code has no expiration date", "file", a.Filename, "buyout_code", code)
		return false
	}

	expiry, ok := ParseExpiry(expiryStr)
	if !ok {
		utils.Error("Invalid expiration date format",
			"buyout_code", code,
			"expiry", expiryStr)
		return false
	}

	if v.now().After(expiry) {
		utils.Warn("Expired buyout code",
			"file", a.Filename,
			"buyout_code", code,
			"expired_on", expiryStr)
		return false
	}

	utils.Debug("Buyout validation passed", "file", a.Filename, "valid_until", expiryStr)
	return true
}
