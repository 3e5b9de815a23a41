// Package hierarchy строит путь папок для размещения креатива.
//
// Порядок уровней задаётся во вкладке UI таблицы: level_0 → year,
// level_1 → country и т.д. Каждое имя поля отображается в закрытое
// перечисление Field, значение вычисляется тотальной функцией Value.
package hierarchy

import (
	"strconv"
	"strings"

	"github.com/ilkoid/creative-sorter/pkg/asset"
)

// Unset подставляется вместо неизвестного поля или пустого значения.
const Unset = "Unset"

// Field — поле креатива, по которому строится уровень иерархии.
type Field int

const (
	FieldUnknown Field = iota
	FieldCountry
	FieldLanguage
	FieldBuyoutCode
	FieldConcept
	FieldAudience
	FieldTransactionSide
	FieldAssetFormat
	FieldDuration
	FieldYear
	FieldMonth
)

var fieldNames = map[Field]string{
	FieldCountry:         "country",
	FieldLanguage:        "language",
	FieldBuyoutCode:      "buyout_code",
	FieldConcept:         "concept",
	FieldAudience:        "audience",
	FieldTransactionSide: "transaction_side",
	FieldAssetFormat:     "asset_format",
	FieldDuration:        "duration",
	FieldYear:            "year",
	FieldMonth:           "month",
}

// ParseField возвращает FieldUnknown для незнакомых имён.
// Регистр и пробелы по краям игнорируются.
func ParseField(name string) Field {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == name {
			return f
		}
	}
	return FieldUnknown
}

// String возвращает имя поля как во вкладке UI.
func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

// Value возвращает имя папки для креатива. Пустое значение → Unset.
func (f Field) Value(a *asset.Asset) string {
	var v string

	switch f {
	case FieldCountry:
		v = a.Country
	case FieldLanguage:
		v = a.Language
	case FieldBuyoutCode:
		v = a.BuyoutCode
	case FieldConcept:
		v = a.Concept
	case FieldAudience:
		v = a.Audience
	case FieldTransactionSide:
		v = a.TransactionSide
	case FieldAssetFormat:
		v = a.AssetFormat
	case FieldDuration:
		v = a.Duration
	case FieldYear:
		if a.ProductionDate != nil {
			v = strconv.Itoa(a.ProductionDate.Year())
		}
	case FieldMonth:
		if a.ProductionDate != nil {
			v = strconv.Itoa(int(a.ProductionDate.Month()))
		}
	case FieldUnknown:
	}

	if v == "" {
		return Unset
	}
	return v
}
