package shelflife

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/pantry-receipts/constants"
)

// Rule is one row of the rule table. Exactly one of ProductID and
// CategoryID is expected to be set.
type Rule struct {
	ProductID  *int64
	CategoryID *int
	StorageID  int64
	OpenState  constants.OpenState
	Days       int
}

// MemoryRules is a RuleStore over a fixed slice. The first matching rule
// wins, as with a LIMIT 1 query.
type MemoryRules struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewMemoryRules(rules ...Rule) *MemoryRules {
	return &MemoryRules{rules: rules}
}

func (m *MemoryRules) Add(r Rule) {
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

func (m *MemoryRules) ProductRule(_ context.Context, productID, storageID int64, state constants.OpenState) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rules {
		if r.ProductID != nil && *r.ProductID == productID && r.StorageID == storageID && r.OpenState == state {
			return r.Days, true, nil
		}
	}
	return 0, false, nil
}

func (m *MemoryRules) CategoryRule(_ context.Context, categoryID int, storageID int64, state constants.OpenState) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rules {
		if r.CategoryID != nil && *r.CategoryID == categoryID && r.StorageID == storageID && r.OpenState == state {
			return r.Days, true, nil
		}
	}
	return 0, false, nil
}
