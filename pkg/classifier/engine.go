package classifier

import (
	"github.com/ilkoid/creative-sorter/pkg/s3storage"
	"github.com/ilkoid/creative-sorter/pkg/utils"
)

// ParsedFile — объект хранилища с разобранным именем.
type ParsedFile struct {
	Object     s3storage.StoredObject
	Attributes Attributes
}

// Result — итог классификации листинга.
type Result struct {
	Parsed  []ParsedFile
	Skipped []string // ключи объектов с именем не по соглашению
}

// Engine выполняет классификацию
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Process принимает список сырых объектов и делит их на разобранные и пропущенные.
//
// Порядок объектов сохраняется. Смотрим только на имя файла, не на путь.
func (e *Engine) Process(objects []s3storage.StoredObject) Result {
	var result Result

	for _, obj := range objects {
		attrs, ok := Parse(obj.Filename())
		if !ok {
			utils.Warn("Failed to parse filename, skipping", "key", obj.Key)
			result.Skipped = append(result.Skipped, obj.Key)
			continue
		}

		result.Parsed = append(result.Parsed, ParsedFile{
			Object:     obj,
			Attributes: attrs,
		})
	}

	utils.Debug("Classification finished",
		"parsed", len(result.Parsed),
		"skipped", len(result.Skipped))

	return result
}
