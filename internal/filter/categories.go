package filter

import (
	"strings"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// MiscCategoryName labels the bucket for unmapped category ids.
const MiscCategoryName = "Misc"

// CategoryNames maps upstream category ids to display names.
var CategoryNames = map[string]string{
	"1": "Clothes",
	"2": "Electronics",
	"3": "Furniture",
	"4": "Shoes",
	"5": MiscCategoryName,
}

// CategoryName returns the display name for id, or Misc when id is unmapped.
func CategoryName(id string) string {
	if name, ok := CategoryNames[strings.TrimSpace(id)]; ok {
		return name
	}
	return MiscCategoryName
}

// DeriveCategories names each raw category through CategoryNames and collapses entries whose
// normalised names collide. The first id seen for a name wins, except that the Misc bucket always
// carries domain.MiscCategoryID.
func DeriveCategories(raw []domain.Category) []domain.Category {
	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.Category, 0, len(raw))
	misc := normalizeName(MiscCategoryName)
	for _, category := range raw {
		name := CategoryName(category.ID)
		key := normalizeName(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		id := strings.TrimSpace(category.ID)
		if key == misc {
			id = domain.MiscCategoryID
		}
		out = append(out, domain.Category{ID: id, Name: name})
	}
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
