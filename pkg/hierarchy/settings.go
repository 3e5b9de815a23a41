package hierarchy

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/ilkoid/creative-sorter/pkg/asset"
)

// Level — один уровень вложенности папок.
type Level struct {
	Name     string // имя поля как в таблице (для логов)
	Field    Field
	Position int
}

// Settings — упорядочиваемый набор уровней.
type Settings struct {
	Levels []Level
}

// NewLevel строит уровень по имени поля.
func NewLevel(name string, position int) Level {
	name = strings.ToLower(strings.TrimSpace(name))
	return Level{Name: name, Field: ParseField(name), Position: position}
}

// SortedLevels возвращает копию уровней по возрастанию Position.
//
// Сортировка стабильная: уровни с одинаковой позицией остаются в порядке
// объявления. Дубликаты позиций не схлопываются.
func (s Settings) SortedLevels() []Level {
	levels := make([]Level, len(s.Levels))
	copy(levels, s.Levels)
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Position < levels[j].Position
	})
	return levels
}

// FieldNames возвращает имена полей в порядке уровней.
func (s Settings) FieldNames() []string {
	levels := s.SortedLevels()
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.Name
	}
	return names
}

// FromSheetRows строит настройки из строк вкладки UI (без заголовка).
//
// Ожидаемый формат:
//
//	level   | field
//	--------|--------
//	level_0 | year
//	level_1 | country
//
// Первая колонка — "level_N" или число. Строки с пустыми ячейками
// или нечисловой позицией пропускаются.
func FromSheetRows(rows [][]string) Settings {
	var levels []Level

	for _, row := range rows {
		if len(row) < 2 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			continue
		}

		position, ok := parsePosition(strings.TrimSpace(row[0]))
		if !ok {
			continue
		}

		levels = append(levels, NewLevel(row[1], position))
	}

	return Settings{Levels: levels}
}

func parsePosition(raw string) (int, bool) {
	if rest, found := strings.CutPrefix(raw, "level_"); found {
		raw = rest
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Resolve возвращает путь папок для креатива, старший уровень первым.
func Resolve(a *asset.Asset, s Settings) []string {
	levels := s.SortedLevels()
	segments := make([]string, 0, len(levels))
	for _, level := range levels {
		segments = append(segments, level.Field.Value(a))
	}
	return segments
}

// Path склеивает префикс, папки и имя файла в ключ хранилища.
func Path(prefix string, segments []string, filename string) string {
	parts := make([]string, 0, len(segments)+2)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, segments...)
	parts = append(parts, filename)
	return path.Join(parts...)
}
