package core

import (
	"errors"
	"strings"
)

// Category is a transaction label with a display color. Custom marks
// user-defined categories as opposed to the built-in presets.
type Category struct {
	Name     string `json:"name"`
	ColorHex string `json:"colorHex"`
	Custom   bool   `json:"custom"`
}

var (
	ErrEmptyCategoryName     = errors.New("category name cannot be empty")
	ErrBuiltinCategoryName   = errors.New("category name collides with a built-in")
	ErrDuplicateCategoryName = errors.New("category already exists")
)

// builtins is the fixed preset list. The ordering is stable so merged
// views always show presets in the same sequence.
var builtins = []Category{
	{Name: "Food", ColorHex: "#EF5350"},
	{Name: "Transport", ColorHex: "#42A5F5"},
	{Name: "Shopping", ColorHex: "#66BB6A"},
	{Name: "Bills", ColorHex: "#FFCA28"},
	{Name: "Entertainment", ColorHex: "#AB47BC"},
	{Name: "Health", ColorHex: "#26C6DA"},
	{Name: "Education", ColorHex: "#FF7043"},
	{Name: "Rent", ColorHex: "#8D6E63"},
	{Name: "Salary", ColorHex: "#78909C"},
	{Name: "Travel", ColorHex: "#EC407A"},
	{Name: "Gifts", ColorHex: "#5C6BC0"},
	{Name: "Others", ColorHex: "#9CCC65"},
}

// BuiltinCategories returns a fresh copy of the preset list.
func BuiltinCategories() []Category {
	out := make([]Category, len(builtins))
	copy(out, builtins)
	return out
}

// IsBuiltinCategory reports whether name matches a preset, ignoring case.
func IsBuiltinCategory(name string) bool {
	for _, b := range builtins {
		if strings.EqualFold(b.Name, name) {
			return true
		}
	}
	return false
}

// MergeCategories repopulates the built-in presets first and then
// appends customs whose names do not collide with a preset or an earlier
// custom. Repopulating builtins first avoids duplicate-name drift when a
// stale custom set still carries a name that later became a preset.
func MergeCategories(custom []Category) []Category {
	out := BuiltinCategories()
	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[strings.ToLower(c.Name)] = struct{}{}
	}
	for _, c := range custom {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.Custom = true
		out = append(out, c)
	}
	return out
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}
