package server

import (
	"context"
	"encoding/base64"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
)

type exportRequest struct {
	UserID          int64    `json:"user_id" validate:"gte=0"`
	Recommend       bool     `json:"recommend"`
	LikedCategories []string `json:"liked_categories"`
}

// ExportPantry returns the XLSX workbook base64 encoded. With recommend set
// the inventory recommendations are added on their own sheet.
func (s *PantryServer) ExportPantry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req exportRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	log := s.log(ctx)
	userID := s.user(ctx, req.UserID)

	var recs []recipe.Recommendation
	if req.Recommend && s.deps.Recommender != nil {
		prefs, err := s.preferences(ctx, userID, req.LikedCategories)
		if err != nil {
			return nil, fail(log, "export.preferences.failed", err, "user_id", userID)
		}
		owned, err := s.ownedProducts(ctx, userID)
		if err != nil {
			return nil, fail(log, "export.inventory.failed", err, "user_id", userID)
		}
		recs = s.deps.Recommender.FromInventory(ctx, owned, prefs)
	}

	xlsx, err := s.deps.Export.ExportPantryXLSX(ctx, userID, recs)
	if err != nil {
		return nil, fail(log, "export.xlsx.failed", err, "user_id", userID)
	}
	return encode(map[string]any{
		"filename": "pantry.xlsx",
		"xlsx":     base64.StdEncoding.EncodeToString(xlsx),
	})
}
