package strategy

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category groups entity spans of free text.
type Category string

// Built-in categories.
const (
	Names         Category = "Names"
	Locations     Category = "Locations"
	Organizations Category = "Organizations"
	Emails        Category = "Emails"
	PhoneNumbers  Category = "Phone-Numbers"
	Others        Category = "Others"
)

// Categories lists the built-in categories in their default processing order.
var Categories = []Category{Names, Locations, Organizations, Emails, PhoneNumbers, Others}

var syntheticByCategory = map[Category]Strategy{
	Names:         SyntheticName,
	Locations:     SyntheticLocation,
	Organizations: SyntheticOrg,
	Emails:        SyntheticEmail,
	PhoneNumbers:  SyntheticPhone,
}

// ForCategory returns the synthetic value method for a category.
func ForCategory(c Category) (Strategy, error) {
	if s, ok := syntheticByCategory[c]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%w: no synthetic generator for category %q", ErrUnknownStrategy, c)
}

// ParseCategory maps user input such as "names" or "phone-numbers" onto a
// built-in category. Unknown names are title-cased and kept as custom
// categories for pattern matches.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return Category(cases.Title(language.Und, cases.NoLower).String(s))
}

var columnHints = []struct {
	keywords []string
	category Category
}{
	{[]string{"email", "e-mail", "mail"}, Emails},
	{[]string{"phone", "mobile", "tel"}, PhoneNumbers},
	{[]string{"company", "org", "employer"}, Organizations},
	{[]string{"city", "location", "country", "address", "place", "town"}, Locations},
	{[]string{"name"}, Names},
}

// CategoryForColumn guesses a category from a column name so the generic
// synthetic method can run on structured data.
func CategoryForColumn(column string) (Category, bool) {
	lower := strings.ToLower(column)
	for _, h := range columnHints {
		for _, k := range h.keywords {
			if strings.Contains(lower, k) {
				return h.category, true
			}
		}
	}
	return "", false
}
