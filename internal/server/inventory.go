package server

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
	"github.com/joseph-ayodele/pantry-receipts/internal/shelflife"
)

type inventoryRequest struct {
	UserID int64  `json:"user_id" validate:"gte=0"`
	Status string `json:"status" validate:"omitempty,oneof=in_stock consumed discarded"`
}

type batchView struct {
	BatchID       int64   `json:"batch_id"`
	ProductID     int64   `json:"product_id"`
	NameTR        string  `json:"name_tr"`
	NameEN        string  `json:"name_en"`
	Qty           float64 `json:"qty"`
	Status        string  `json:"status"`
	PurchaseDate  string  `json:"purchase_date"`
	ExpiryDate    string  `json:"expiry_date,omitempty"`
	Opened        bool    `json:"opened"`
	DaysRemaining *int    `json:"days_remaining,omitempty"`
	PriorityScore *int    `json:"priority_score,omitempty"`
	Urgency       string  `json:"urgency,omitempty"`
}

func (s *PantryServer) toBatchView(r entity.InventoryRow) batchView {
	v := batchView{
		BatchID:      r.ID,
		ProductID:    r.ProductID,
		NameTR:       r.NameTR,
		NameEN:       r.NameEN,
		Qty:          r.Qty,
		Status:       r.Status,
		PurchaseDate: r.PurchaseDate.Format(time.DateOnly),
		Opened:       r.OpenedAt != nil,
	}
	if r.ExpectedExpiryDate != nil {
		days := recipe.DaysBetween(s.now(), *r.ExpectedExpiryDate)
		score := recipe.PriorityScore(days)
		v.ExpiryDate = r.ExpectedExpiryDate.Format(time.DateOnly)
		v.DaysRemaining = &days
		v.PriorityScore = &score
		v.Urgency = string(recipe.ProductUrgency(days))
	}
	return v
}

// ListInventory returns the user's batches, soonest expiry first.
func (s *PantryServer) ListInventory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req inventoryRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID := s.user(ctx, req.UserID)
	rows, err := s.deps.DB.Queries().ListInventory(ctx, userID, req.Status)
	if err != nil {
		return nil, fail(s.log(ctx), "inventory.list.failed", err, "user_id", userID)
	}
	out := make([]batchView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toBatchView(r))
	}
	return encode(map[string]any{"batches": out})
}

type updateBatchRequest struct {
	BatchID int64  `json:"batch_id" validate:"required,gt=0"`
	Status  string `json:"status" validate:"omitempty,oneof=in_stock consumed discarded"`
	Open    bool   `json:"open"`
}

// UpdateBatch changes a batch's status and can mark it opened. Opening
// recomputes the expiry from the opened-state rule when one exists; the new
// expiry never extends the sealed one.
func (s *PantryServer) UpdateBatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateBatchRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.Status == "" && !req.Open {
		return nil, common.InvalidArgumentError("status or open is required")
	}
	log := s.log(ctx)

	var batch entity.InventoryBatch
	err := s.deps.DB.InTx(ctx, func(q *repository.Queries) error {
		if req.Status != "" {
			if err := q.UpdateBatchStatus(ctx, req.BatchID, req.Status); err != nil {
				return err
			}
		}
		if req.Open {
			if err := s.openBatch(ctx, q, req.BatchID); err != nil {
				return err
			}
		}
		var err error
		batch, err = q.GetBatch(ctx, req.BatchID)
		return err
	})
	if err != nil {
		return nil, fail(log, "inventory.update.failed", err, "batch_id", req.BatchID)
	}
	log.Info("inventory.batch.updated", "batch_id", batch.ID, "status", batch.Status, "opened", batch.OpenedAt != nil)

	v := map[string]any{"batch_id": batch.ID, "status": batch.Status, "opened": batch.OpenedAt != nil}
	if batch.ExpectedExpiryDate != nil {
		v["expiry_date"] = batch.ExpectedExpiryDate.Format(time.DateOnly)
	}
	return encode(v)
}

func (s *PantryServer) openBatch(ctx context.Context, q *repository.Queries, batchID int64) error {
	b, err := q.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if b.OpenedAt != nil {
		return nil
	}
	product, err := q.GetProduct(ctx, b.ProductID)
	if err != nil {
		return err
	}
	storageID := s.deps.Storage
	switch {
	case b.StorageID != nil:
		storageID = *b.StorageID
	case product.DefaultStorageID != nil:
		storageID = *product.DefaultStorageID
	}

	openedAt := s.now().UTC()
	expiry := b.ExpectedExpiryDate
	days, src, err := shelflife.NewResolver(q, s.logger).Resolve(ctx, shelflife.Query{
		ProductID:  &b.ProductID,
		CategoryID: product.CategoryID,
		StorageID:  storageID,
		OpenState:  constants.OpenStateOpened,
	})
	if err != nil {
		return err
	}
	if src != shelflife.SourceNone {
		e := time.Date(openedAt.Year(), openedAt.Month(), openedAt.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		if expiry == nil || e.Before(*expiry) {
			expiry = &e
		}
	}
	return q.OpenBatch(ctx, batchID, openedAt, expiry)
}

type recommendRequest struct {
	UserID          int64           `json:"user_id" validate:"gte=0"`
	Source          string          `json:"source" validate:"omitempty,oneof=inventory receipt"`
	ReceiptID       int64           `json:"receipt_id" validate:"required_if=Source receipt"`
	LikedCategories []string        `json:"liked_categories"`
	Candidates      json.RawMessage `json:"candidates"`
}

// Recommend ranks recipes for the user's inventory or for one receipt.
// When candidates are supplied they are ranked against the inventory
// directly and no search is made.
func (s *PantryServer) Recommend(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req recommendRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	log := s.log(ctx)
	userID := s.user(ctx, req.UserID)

	if len(req.Candidates) > 0 {
		candidates, err := recipe.DecodeCandidates(req.Candidates)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("candidates: %v", err)
		}
		owned, err := s.ownedProducts(ctx, userID)
		if err != nil {
			return nil, fail(log, "recipe.inventory.failed", err, "user_id", userID)
		}
		return encode(map[string]any{"recommendations": recipe.Rank(candidates, owned)})
	}

	if s.deps.Recommender == nil {
		return nil, common.FailedPreconditionError("recipe search is not configured")
	}
	prefs, err := s.preferences(ctx, userID, req.LikedCategories)
	if err != nil {
		return nil, fail(log, "recipe.preferences.failed", err, "user_id", userID)
	}

	var recs []recipe.Recommendation
	if req.Source == "receipt" {
		items, err := s.deps.DB.Queries().ListReceiptItems(ctx, req.ReceiptID)
		if err != nil {
			return nil, fail(log, "recipe.receipt.failed", err, "receipt_id", req.ReceiptID)
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.NormalizedName)
		}
		recs = s.deps.Recommender.FromReceipt(ctx, names, prefs)
	} else {
		owned, err := s.ownedProducts(ctx, userID)
		if err != nil {
			return nil, fail(log, "recipe.inventory.failed", err, "user_id", userID)
		}
		recs = s.deps.Recommender.FromInventory(ctx, owned, prefs)
	}
	if recs == nil {
		recs = []recipe.Recommendation{}
	}
	log.Info("recipe.recommended", "user_id", userID, "source", req.Source, "count", len(recs))
	return encode(map[string]any{"recommendations": recs})
}

func (s *PantryServer) ownedProducts(ctx context.Context, userID int64) ([]recipe.OwnedProduct, error) {
	rows, err := s.deps.DB.Queries().ListInventory(ctx, userID, constants.BatchStatusInStock)
	if err != nil {
		return nil, err
	}
	items := make([]recipe.InventoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, recipe.InventoryItem{
			NameEN:             r.NameEN,
			NameTR:             r.NameTR,
			Qty:                r.Qty,
			Status:             r.Status,
			ExpectedExpiryDate: r.ExpectedExpiryDate,
		})
	}
	return recipe.FromInventory(items, s.now()), nil
}
