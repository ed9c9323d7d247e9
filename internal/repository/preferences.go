package repository

import (
	"context"
	"errors"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
)

// GetPreferences loads a user's allergies, disliked products and diets.
func (q *Queries) GetPreferences(ctx context.Context, userID int64) (entity.Preferences, error) {
	var (
		prefs entity.Preferences
		err   error
	)
	ua, a := q.b.Table("user_allergies"), q.b.Table("allergens")
	prefs.Allergies, err = q.stringColumn(ctx, q.b.Select(a.C("name")).
		From(ua).
		Join(a).On(ua.C("allergen_id"), a.C("allergen_id")).
		Where(entsql.EQ(ua.C("user_id"), userID)).
		OrderBy(a.C("name")))
	if err != nil {
		return entity.Preferences{}, err
	}

	ud, p := q.b.Table("user_dislikes"), q.b.Table("products")
	prefs.Dislikes, err = q.stringColumn(ctx, q.b.Select(p.C("canonical_name")).
		From(ud).
		Join(p).On(ud.C("product_id"), p.C("product_id")).
		Where(entsql.EQ(ud.C("user_id"), userID)).
		OrderBy(p.C("canonical_name")))
	if err != nil {
		return entity.Preferences{}, err
	}

	up, d := q.b.Table("user_dietary_preferences"), q.b.Table("dietary_preferences")
	prefs.Diets, err = q.stringColumn(ctx, q.b.Select(d.C("code")).
		From(up).
		Join(d).On(up.C("pref_id"), d.C("pref_id")).
		Where(entsql.EQ(up.C("user_id"), userID)).
		OrderBy(d.C("code")))
	if err != nil {
		return entity.Preferences{}, err
	}
	return prefs, nil
}

// SetPreferences replaces a user's preferences. Allergens and diets are
// created on first use; dislikes naming an unknown product are skipped.
// Call it inside DB.InTx.
func (q *Queries) SetPreferences(ctx context.Context, userID int64, prefs entity.Preferences) error {
	for _, table := range []string{"user_allergies", "user_dislikes", "user_dietary_preferences"} {
		if _, err := q.exec(ctx, q.b.Delete(table).Where(entsql.EQ("user_id", userID))); err != nil {
			return err
		}
	}

	for _, name := range cleanNames(prefs.Allergies) {
		id, err := q.ensureNamed(ctx, "allergens", "allergen_id", "name", name, nil)
		if err != nil {
			return err
		}
		if err := q.link(ctx, "user_allergies", "allergen_id", userID, id); err != nil {
			return err
		}
	}
	for _, name := range cleanNames(prefs.Dislikes) {
		id, err := q.ProductIDByName(ctx, name)
		if errors.Is(err, common.ErrNotFound) {
			q.logger.Debug("preferences.dislike.unknown_product", "user_id", userID, "name", name)
			continue
		}
		if err != nil {
			return err
		}
		if err := q.link(ctx, "user_dislikes", "product_id", userID, id); err != nil {
			return err
		}
	}
	for _, code := range cleanNames(prefs.Diets) {
		id, err := q.ensureNamed(ctx, "dietary_preferences", "pref_id", "code", code, map[string]any{"label": code})
		if err != nil {
			return err
		}
		if err := q.link(ctx, "user_dietary_preferences", "pref_id", userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) ensureNamed(ctx context.Context, table, idColumn, nameColumn, name string, extra map[string]any) (int64, error) {
	cols, vals := []string{nameColumn}, []any{name}
	for k, v := range extra {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	ib := q.b.Insert(table).
		Columns(cols...).
		Values(vals...).
		OnConflict(entsql.ConflictColumns(nameColumn), entsql.DoNothing())
	if _, err := q.exec(ctx, ib); err != nil {
		return 0, err
	}
	var id int64
	row := q.row(ctx, q.b.Select(idColumn).From(q.b.Table(table)).Where(entsql.EQ(nameColumn, name)))
	if err := scanOne(row, table+" "+name, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (q *Queries) link(ctx context.Context, table, column string, userID, id int64) error {
	_, err := q.exec(ctx, q.b.Insert(table).
		Columns("user_id", column).
		Values(userID, id).
		OnConflict(entsql.ConflictColumns("user_id", column), entsql.DoNothing()))
	return err
}

func (q *Queries) stringColumn(ctx context.Context, st statement) ([]string, error) {
	rows, err := q.query(ctx, st)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func cleanNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
