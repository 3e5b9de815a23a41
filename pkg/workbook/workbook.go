// Package workbook читает выгрузку таблицы с настройками прогона и метриками.
//
// Выгрузка — YAML файл, где каждая вкладка хранится как список строк,
// первая строка вкладки — заголовок:
//
//	tabs:
//	  UI:
//	    - [level, field]
//	    - [level_0, year]
//	  buyouts_to_date:
//	    - [buyout_code, expiration_date]
//	    - [BUY123, 31/12/2099]
//
// Вкладки: UI (уровни иерархии), uac_assets_data (данные креативов),
// uac_ads_data (метрики объявлений), buyouts_to_date (сроки выкупа).
package workbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ilkoid/creative-sorter/pkg/hierarchy"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// Имена вкладок.
const (
	TabUI      = "UI"
	TabAssets  = "uac_assets_data"
	TabAds     = "uac_ads_data"
	TabBuyouts = "buyouts_to_date"
)

// Record — строка вкладки, ключи из заголовка.
type Record map[string]string

// Workbook — загруженная выгрузка.
type Workbook struct {
	Tabs map[string][][]string `yaml:"tabs"`

	assets []Record
	ads    []Record
}

// Load читает выгрузку из YAML файла.
func Load(path string) (*Workbook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}

	var wb Workbook
	if err := yaml.Unmarshal(raw, &wb); err != nil {
		return nil, fmt.Errorf("failed to parse workbook yaml: %w", err)
	}

	wb.index()
	return &wb, nil
}

// New строит Workbook из вкладок в памяти.
func New(tabs map[string][][]string) *Workbook {
	wb := &Workbook{Tabs: tabs}
	wb.index()
	return wb
}

func (w *Workbook) index() {
	w.assets = w.records(TabAssets)
	w.ads = w.records(TabAds)
}

// records превращает вкладку в записи по заголовку.
// Короткие строки дополняются пустыми значениями.
func (w *Workbook) records(tab string) []Record {
	rows := w.Tabs[tab]
	if len(rows) < 2 {
		utils.Warn("Workbook tab is empty or has no data rows", "tab", tab)
		return nil
	}

	headers := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// HierarchySettings возвращает уровни иерархии из вкладки UI.
func (w *Workbook) HierarchySettings() hierarchy.Settings {
	rows := w.Tabs[TabUI]
	if len(rows) < 2 {
		utils.Error("UI settings not found or invalid format")
		return hierarchy.Settings{}
	}

	s := hierarchy.FromSheetRows(rows[1:])
	utils.Info("Loaded hierarchy settings", "levels", len(s.Levels), "fields", s.FieldNames())
	return s
}

// Buyouts возвращает код выкупа → дата окончания.
func (w *Workbook) Buyouts() map[string]string {
	rows := w.Tabs[TabBuyouts]
	result := make(map[string]string)
	if len(rows) < 2 {
		utils.Error("Buyout data not found or invalid format")
		return result
	}

	for _, row := range rows[1:] {
		if len(row) >= 2 {
			result[row[0]] = row[1]
		}
	}
	return result
}

// AssetRows возвращает строки вкладки uac_assets_data.
func (w *Workbook) AssetRows() []Record { return w.assets }

// AdsRows возвращает строки вкладки uac_ads_data.
func (w *Workbook) AdsRows() []Record { return w.ads }
