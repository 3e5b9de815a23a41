package classifier

import (
	"path"
	"regexp"
	"strings"

	"github.com/ilkoid/creative-sorter/pkg/asset"
)

// Формат имени креатива:
//
//	{COUNTRY-LANGUAGE} | {buyout-code} | {concept} | {audience} | {transaction_side} | {asset_format} | {duration} | {file_format}
//
// Все промежуточные поля нежадные, последнее забирает хвост строки целиком.
var filenamePattern = regexp.MustCompile(
	`^([A-Z]{2}-[A-Z]{2})\s*\|\s*([A-Za-z0-9]+)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+?)\s*\|\s*(.+)$`,
)

// Attributes — поля, извлечённые из имени файла.
type Attributes struct {
	CountryLanguage  string
	BuyoutCode       string
	Concept          string
	Audience         string
	TransactionSide  string
	AssetFormat      string
	Duration         string
	FileFormat       string
	OriginalFilename string
}

// Country возвращает часть до первого "-". Без дефиса — пустая строка.
func (a Attributes) Country() string {
	country, _, ok := strings.Cut(a.CountryLanguage, "-")
	if !ok {
		return ""
	}
	return country
}

// Language возвращает часть после первого "-". Без дефиса — пустая строка.
func (a Attributes) Language() string {
	_, language, ok := strings.Cut(a.CountryLanguage, "-")
	if !ok {
		return ""
	}
	return language
}

// Parse разбирает имя файла. Директории в пути игнорируются.
//
// ok=false означает что имя не соответствует соглашению: это не ошибка,
// вызывающий логирует и пропускает файл.
func Parse(filename string) (Attributes, bool) {
	base := path.Base(filename)

	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return Attributes{}, false
	}

	return Attributes{
		CountryLanguage:  strings.TrimSpace(m[1]),
		BuyoutCode:       strings.TrimSpace(m[2]),
		Concept:          strings.TrimSpace(m[3]),
		Audience:         strings.TrimSpace(m[4]),
		TransactionSide:  strings.TrimSpace(m[5]),
		AssetFormat:      strings.TrimSpace(m[6]),
		Duration:         strings.TrimSpace(m[7]),
		FileFormat:       strings.TrimSpace(m[8]),
		OriginalFilename: base,
	}, true
}

// NewAsset строит Asset из разобранного имени.
// Раз разбор прошёл, имя считается валидным до проверки валидатором.
func NewAsset(filename string, attrs Attributes) *asset.Asset {
	return &asset.Asset{
		Filename:        filename,
		Country:         attrs.Country(),
		Language:        attrs.Language(),
		BuyoutCode:      attrs.BuyoutCode,
		Concept:         attrs.Concept,
		Audience:        attrs.Audience,
		TransactionSide: attrs.TransactionSide,
		AssetFormat:     attrs.AssetFormat,
		Duration:        attrs.Duration,
		FileFormat:      attrs.FileFormat,
		IsValidName:     true,
	}
}
