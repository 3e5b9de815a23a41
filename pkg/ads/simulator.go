package ads

import (
	"context"
	"sync"
)

// Simulator принимает все изменения бюджета и запоминает последние значения.
// Используется в demo режиме и в тестах верхних слоёв.
type Simulator struct {
	mu      sync.Mutex
	budgets map[string]int // ad_id/asset_id → бюджет
	calls   int
}

var _ BudgetUpdater = (*Simulator)(nil)

func NewSimulator() *Simulator {
	return &Simulator{budgets: make(map[string]int)}
}

func (s *Simulator) UpdateBudget(ctx context.Context, adID, assetID string, newBudget int) (UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return UpdateResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.budgets[adID+"/"+assetID] = newBudget
	return UpdateResult{Status: "success"}, nil
}

// Budget возвращает последний выставленный бюджет.
func (s *Simulator) Budget(adID, assetID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[adID+"/"+assetID]
	return b, ok
}

// Calls — число принятых вызовов.
func (s *Simulator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
