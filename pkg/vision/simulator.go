package vision

import (
	"context"
	"fmt"
	"hash/fnv"
)

// DemoKey включает симулятор вместо реального API.
const DemoKey = "demo_key"

// Simulator — детерминированный анализатор для demo режима.
//
// Оценка зависит только от содержимого: один и тот же файл всегда получает
// одинаковый результат, что удобно для повторяемых прогонов.
type Simulator struct{}

var _ Analyzer = Simulator{}

func (Simulator) Analyze(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", nil
	}

	h := fnv.New32a()
	h.Write(image)
	sum := h.Sum32()

	quality := 3 + float64(sum%70)/10 // 3.0 .. 9.9
	privacy := sum%10 != 0            // ~10% файлов не проходят privacy

	return fmt.Sprintf(`{"quality": %.1f, "privacy": %t}`, quality, privacy), nil
}

// NewAnalyzer выбирает реализацию по ключу модели.
func NewAnalyzer(apiKey string, build func() Analyzer) Analyzer {
	if apiKey == DemoKey {
		return Simulator{}
	}
	return build()
}
