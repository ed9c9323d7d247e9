package repository

import (
	"context"
	"errors"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
)

func (q *Queries) CreateShelfLifeRule(ctx context.Context, r entity.ShelfLifeRule) (int64, error) {
	state := constants.ParseOpenState(r.OpenState)
	ib := q.b.Insert("shelf_life_rules").
		Columns("product_id", "category_id", "storage_id", "open_state", "days").
		Values(nullable(r.ProductID), nullable(r.CategoryID), r.StorageID, string(state), r.Days)
	return q.insertID(ctx, ib, "rule_id")
}

// ProductRule implements shelflife.RuleStore.
func (q *Queries) ProductRule(ctx context.Context, productID, storageID int64, state constants.OpenState) (int, bool, error) {
	return q.ruleDays(ctx, entsql.EQ("product_id", productID), storageID, state)
}

func (q *Queries) CategoryRule(ctx context.Context, categoryID int, storageID int64, state constants.OpenState) (int, bool, error) {
	return q.ruleDays(ctx, entsql.EQ("category_id", categoryID), storageID, state)
}

func (q *Queries) ruleDays(ctx context.Context, key *entsql.Predicate, storageID int64, state constants.OpenState) (int, bool, error) {
	var days int
	row := q.row(ctx, q.b.Select("days").
		From(q.b.Table("shelf_life_rules")).
		Where(entsql.And(key, entsql.EQ("storage_id", storageID), entsql.EQ("open_state", string(state)))).
		OrderBy("rule_id").
		Limit(1))
	if err := scanOne(row, "shelf life rule", &days); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return days, true, nil
}
