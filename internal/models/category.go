package models

import "strings"

// Category is one of the three ESG pledge groupings.
type Category string

const (
	CategoryE Category = "e"
	CategoryS Category = "s"
	CategoryG Category = "g"
)

// Categories lists every category in leaderboard column order.
var Categories = []Category{CategoryE, CategoryS, CategoryG}

func (c Category) Valid() bool {
	switch c {
	case CategoryE, CategoryS, CategoryG:
		return true
	}
	return false
}

// RoutePrefix is the API group serving this category, e.g. "epledges".
func (c Category) RoutePrefix() string {
	return string(c) + "pledges"
}

// Label is the human name used in notifications.
func (c Category) Label() string {
	switch c {
	case CategoryE:
		return "Environmental"
	case CategoryS:
		return "Social"
	case CategoryG:
		return "Governance"
	}
	return strings.ToUpper(string(c))
}

// ParseCategory accepts "e", "E" or the route prefix form "epledges".
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "pledges"))
	return c, c.Valid()
}
