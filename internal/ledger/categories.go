package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/store/remote"
)

func (r *Repository) categoriesPath() string {
	return remote.CategoriesPath(r.mode.OwnerID())
}

// ListCategories returns the built-in presets merged with the owner's
// custom categories. Guest sessions see the presets only.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	if r.mode.IsGuest() {
		return core.BuiltinCategories(), nil
	}

	custom, _, err := r.fetchCustomCategories(ctx)
	if err != nil {
		return nil, err
	}
	return core.MergeCategories(custom), nil
}

// AddCategory persists a custom category. The record is keyed by the
// category name, so a name identifies at most one record; collisions
// with presets or existing customs are rejected.
func (r *Repository) AddCategory(ctx context.Context, name, colorHex string) (core.Category, error) {
	if r.mode.IsGuest() {
		return core.Category{}, ErrAuthRequired
	}

	cat := core.Category{Name: strings.TrimSpace(name), ColorHex: colorHex, Custom: true}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}
	if core.IsBuiltinCategory(cat.Name) {
		return core.Category{}, core.ErrBuiltinCategoryName
	}

	custom, _, err := r.fetchCustomCategories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, existing := range custom {
		if strings.EqualFold(existing.Name, cat.Name) {
			return core.Category{}, core.ErrDuplicateCategoryName
		}
	}

	data, err := json.Marshal(cat)
	if err != nil {
		return core.Category{}, fmt.Errorf("encode category: %w", err)
	}
	if err := r.client.Write(ctx, r.categoriesPath(), cat.Name, data); err != nil {
		return core.Category{}, fmt.Errorf("write category: %w", err)
	}
	return cat, nil
}

// DeleteCategory removes a custom category by name, matching
// case-insensitively so stray case variants go with it. Built-in names
// are rejected; an absent custom name is a no-op.
func (r *Repository) DeleteCategory(ctx context.Context, name string) error {
	if r.mode.IsGuest() {
		return ErrAuthRequired
	}
	if core.IsBuiltinCategory(name) {
		return core.ErrBuiltinCategoryName
	}

	custom, keys, err := r.fetchCustomCategories(ctx)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(name)
	for i, cat := range custom {
		if strings.EqualFold(cat.Name, trimmed) {
			if err := r.client.Delete(ctx, r.categoriesPath(), keys[i]); err != nil {
				return fmt.Errorf("delete category: %w", err)
			}
		}
	}
	return nil
}

func (r *Repository) fetchCustomCategories(ctx context.Context) ([]core.Category, []string, error) {
	records, err := r.client.FetchOnce(ctx, r.categoriesPath())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch categories: %w", err)
	}

	cats := make([]core.Category, 0, len(records))
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		var cat core.Category
		if err := json.Unmarshal(rec.Data, &cat); err != nil {
			r.logger.WarnContext(ctx, "Skipping undecodable category record",
				"key", rec.Key, "error", err)
			continue
		}
		cats = append(cats, cat)
		keys = append(keys, rec.Key)
	}
	return cats, keys, nil
}
