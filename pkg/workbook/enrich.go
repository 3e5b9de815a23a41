package workbook

import (
	"strconv"
	"strings"
	"time"

	"github.com/ilkoid/creative-sorter/pkg/asset"
	"github.com/ilkoid/creative-sorter/pkg/classifier"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

const productionDateLayout = "2006-01-02 15:04:05"

// FindAssetRow ищет строку креатива по колонке filename.
func (w *Workbook) FindAssetRow(filename string) Record {
	for _, rec := range w.assets {
		if rec["filename"] == filename {
			return rec
		}
	}
	return nil
}

// FindMatchingAsset ищет строку по asset_name: сначала точное совпадение,
// потом частичное по country-language, concept и audience из имени файла.
func (w *Workbook) FindMatchingAsset(filename string) Record {
	for _, rec := range w.assets {
		if rec["asset_name"] == filename {
			utils.Debug("Found exact asset match", "file", filename)
			return rec
		}
	}

	parts := strings.Split(filename, "|")
	if len(parts) >= 3 {
		countryLang := strings.TrimSpace(parts[0])
		concept := strings.TrimSpace(parts[2])
		audience := ""
		if len(parts) > 3 {
			audience = strings.TrimSpace(parts[3])
		}

		for _, rec := range w.assets {
			name := rec["asset_name"]
			if strings.Contains(name, countryLang) && strings.Contains(name, concept) && strings.Contains(name, audience) {
				utils.Debug("Found partial asset match", "file", filename, "asset_name", name)
				return rec
			}
		}
	}

	utils.Warn("No matching asset found in workbook", "file", filename)
	return nil
}

// adMetrics — найденная строка объявления.
type adMetrics struct {
	adID        string
	budget      int
	clicks      int
	impressions int
	conversions int
}

func metricsFromRecord(rec Record) adMetrics {
	m := adMetrics{
		adID:        rec["ad_id"],
		budget:      asset.DefaultBudget,
		clicks:      parseCount(rec["clicks"]),
		impressions: parseCount(rec["impressions"]),
		conversions: parseCount(rec["conversions"]),
	}
	if b := strings.TrimSpace(rec["budget"]); b != "" {
		if v, err := strconv.ParseFloat(b, 64); err == nil {
			m.budget = int(v)
		}
	}
	return m
}

// parseCount читает счётчик; пустое или нечисловое значение — 0.
func parseCount(s string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(v)
}

// findAds ищет метрики объявления для креатива.
//
// Порядок: по asset_id, по asset_name, по похожей группе объявлений
// (adgroup_name содержит аудиторию, account_name содержит страну).
func (w *Workbook) findAds(assetID, assetName, audience, country string) (adMetrics, bool) {
	if assetID != "" {
		for _, rec := range w.ads {
			if rec["asset_id"] == assetID {
				return metricsFromRecord(rec), true
			}
		}
		if assetName != "" {
			for _, rec := range w.ads {
				if rec["asset_name"] == assetName {
					return metricsFromRecord(rec), true
				}
			}
		}
	}

	if audience != "" && country != "" {
		for _, rec := range w.ads {
			if strings.Contains(rec["adgroup_name"], audience) && strings.Contains(rec["account_name"], country) {
				return metricsFromRecord(rec), true
			}
		}
	}

	return adMetrics{}, false
}

// BuildAsset строит креатив из разобранного имени и данных выгрузки.
//
// asset_id берётся из строки с тем же filename, иначе из строки,
// найденной по asset_name. Без найденного объявления бюджет 1000,
// метрики не заданы.
func (w *Workbook) BuildAsset(filename string, attrs classifier.Attributes) *asset.Asset {
	a := classifier.NewAsset(filename, attrs)
	a.Budget = asset.DefaultBudget

	row := w.FindAssetRow(filename)
	assetID := row["asset_id"]
	if assetID == "" {
		if match := w.FindMatchingAsset(filename); match != nil {
			merged := Record{}
			for k, v := range row {
				merged[k] = v
			}
			for k, v := range match {
				merged[k] = v
			}
			row = merged
			assetID = match["asset_id"]
		}
	}

	a.FileID = assetID
	a.MimeType = row["asset_mime_type"]

	if raw := strings.TrimSpace(row["asset_production_date"]); raw != "" {
		if t, err := time.ParseInLocation(productionDateLayout, raw, time.Local); err == nil {
			a.ProductionDate = &t
		} else {
			utils.Warn("Invalid production date", "file", filename, "value", raw)
		}
	}

	if m, ok := w.findAds(assetID, row["asset_name"], attrs.Audience, attrs.Country()); ok {
		a.AdID = m.adID
		a.Budget = m.budget
		a.Clicks = asset.Int(m.clicks)
		a.Impressions = asset.Int(m.impressions)
		a.Conversions = asset.Int(m.conversions)
		utils.Debug("Found ad data",
			"file", filename,
			"ad_id", m.adID,
			"budget", m.budget)
	}

	return a
}
