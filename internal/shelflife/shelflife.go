// Package shelflife resolves expected shelf life, in days, from product and
// category rules. Product rules always win over category rules.
package shelflife

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pantry-receipts/constants"
)

// Source tells which rule answered a query.
type Source string

const (
	SourceProduct  Source = "product"
	SourceCategory Source = "category"
	SourceNone     Source = "none"
	SourcePolicy   Source = "policy" // default filled in by ResolveOrDefault
)

// Query identifies the item and its storage conditions. ProductID is only
// set for items linked to the catalog.
type Query struct {
	ProductID  *int64
	CategoryID *int
	StorageID  int64
	OpenState  constants.OpenState
}

// RuleStore looks up rule days for an exact storage and open state.
// A missing rule is (0, false, nil).
type RuleStore interface {
	ProductRule(ctx context.Context, productID, storageID int64, state constants.OpenState) (int, bool, error)
	CategoryRule(ctx context.Context, categoryID int, storageID int64, state constants.OpenState) (int, bool, error)
}

type Resolver struct {
	store  RuleStore
	logger *slog.Logger
}

func NewResolver(store RuleStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the rule days for q. The product rule is consulted first
// and only when q.ProductID is set; then the category rule. SourceNone with
// zero days means no rule applies.
func (r *Resolver) Resolve(ctx context.Context, q Query) (int, Source, error) {
	state := q.OpenState
	if state == "" {
		state = constants.OpenStateSealed
	}
	if q.ProductID != nil {
		days, ok, err := r.store.ProductRule(ctx, *q.ProductID, q.StorageID, state)
		if err != nil {
			return 0, SourceNone, fmt.Errorf("product rule: %w", err)
		}
		if ok {
			return days, SourceProduct, nil
		}
	}
	if q.CategoryID != nil {
		days, ok, err := r.store.CategoryRule(ctx, *q.CategoryID, q.StorageID, state)
		if err != nil {
			return 0, SourceNone, fmt.Errorf("category rule: %w", err)
		}
		if ok {
			return days, SourceCategory, nil
		}
	}
	return 0, SourceNone, nil
}

// ResolveOrDefault never fails: lookup errors are logged, and an unresolved
// query falls back to the category default table, then to
// constants.DefaultShelfLifeDays.
func (r *Resolver) ResolveOrDefault(ctx context.Context, q Query) (int, Source) {
	days, src, err := r.Resolve(ctx, q)
	if err != nil {
		r.logger.Warn("shelflife.lookup_failed", "err", err, "storage_id", q.StorageID)
	}
	if err == nil && src != SourceNone {
		return days, src
	}
	return constants.CategoryShelfLife(q.CategoryID), SourcePolicy
}
