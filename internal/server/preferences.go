package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
)

type userRequest struct {
	UserID int64 `json:"user_id" validate:"gte=0"`
}

type setPreferencesRequest struct {
	UserID    int64    `json:"user_id" validate:"gte=0"`
	Allergies []string `json:"allergies" validate:"dive,max=64"`
	Dislikes  []string `json:"dislikes" validate:"dive,max=128"`
	Diets     []string `json:"diets" validate:"dive,max=64"`
}

// GetPreferences returns the user's allergies, dislikes and diets.
func (s *PantryServer) GetPreferences(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req userRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID := s.user(ctx, req.UserID)
	prefs, err := s.deps.DB.Queries().GetPreferences(ctx, userID)
	if err != nil {
		return nil, fail(s.log(ctx), "preferences.get.failed", err, "user_id", userID)
	}
	return encode(nonNil(prefs))
}

// SetPreferences replaces the user's preferences.
func (s *PantryServer) SetPreferences(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req setPreferencesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID := s.user(ctx, req.UserID)
	var stored entity.Preferences
	err := s.deps.DB.InTx(ctx, func(q *repository.Queries) error {
		if err := q.SetPreferences(ctx, userID, entity.Preferences{
			Allergies: req.Allergies,
			Dislikes:  req.Dislikes,
			Diets:     req.Diets,
		}); err != nil {
			return err
		}
		var err error
		stored, err = q.GetPreferences(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fail(s.log(ctx), "preferences.set.failed", err, "user_id", userID)
	}
	s.log(ctx).Info("preferences.updated", "user_id", userID,
		"allergies", len(stored.Allergies), "dislikes", len(stored.Dislikes), "diets", len(stored.Diets))
	return encode(nonNil(stored))
}

// preferences loads the stored settings and adds the liked categories of
// the request, keeping only the ones that name a known food group.
func (s *PantryServer) preferences(ctx context.Context, userID int64, liked []string) (recipe.Preferences, error) {
	stored, err := s.deps.DB.Queries().GetPreferences(ctx, userID)
	if err != nil {
		return recipe.Preferences{}, err
	}
	prefs := recipe.Preferences{
		Allergies: stored.Allergies,
		Dislikes:  stored.Dislikes,
		Diets:     stored.Diets,
	}
	for _, l := range liked {
		g, ok := constants.Canonicalize(l)
		if !ok {
			s.log(ctx).Debug("preferences.unknown_category", "category", l)
			continue
		}
		prefs.LikedCategories = append(prefs.LikedCategories, string(g))
	}
	return prefs, nil
}

func nonNil(p entity.Preferences) entity.Preferences {
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Dislikes == nil {
		p.Dislikes = []string{}
	}
	if p.Diets == nil {
		p.Diets = []string{}
	}
	return p
}
