package services

import (
	"strings"

	"plateshare-server/models"

	"golang.org/x/exp/slices"
)

// Catalog filtering and ordering. Pure and synchronous: handlers load the
// base collection (from cache or DB) and derive the view here on every read.

type SortOrder string

const (
	SortNone       SortOrder = "none"
	SortExpireAsc  SortOrder = "asc"
	SortExpireDesc SortOrder = "desc"
)

// LocationAll disables the pickup-location filter.
const LocationAll = "all"

// ParseSortOrder maps a query parameter onto a SortOrder, defaulting to none.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(s) {
	case "asc", "ascending", "expire_asc":
		return SortExpireAsc
	case "desc", "descending", "expire_desc":
		return SortExpireDesc
	default:
		return SortNone
	}
}

type CatalogFilter struct {
	Query    string
	Location string
	Sort     SortOrder
}

// MatchesQuery reports whether any whitespace-separated word of the food's
// name starts with the query, case-insensitively. An empty query matches
// everything.
func MatchesQuery(food *models.Food, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, word := range strings.Fields(food.Name) {
		if strings.HasPrefix(strings.ToLower(word), q) {
			return true
		}
	}
	return false
}

// MatchesLocation applies the exact pickup-location filter. "all" (or an
// unset filter) passes everything through; a listing without a pickup
// location only ever appears under "all".
func MatchesLocation(food *models.Food, location string) bool {
	if location == "" || strings.EqualFold(location, LocationAll) {
		return true
	}
	return food.PickupLocation == location
}

// FilterFoods derives the filtered, ordered catalog view. The input slice is
// not modified; the result preserves fetch order except where a sort is
// requested, and the sort is stable so equal dates keep their fetch order.
// Listings without an expiry date order after every dated listing in both
// directions.
func FilterFoods(foods []models.Food, filter CatalogFilter) []models.Food {
	out := make([]models.Food, 0, len(foods))
	for i := range foods {
		if !MatchesQuery(&foods[i], filter.Query) {
			continue
		}
		if !MatchesLocation(&foods[i], filter.Location) {
			continue
		}
		out = append(out, foods[i])
	}

	switch filter.Sort {
	case SortExpireAsc:
		slices.SortStableFunc(out, func(a, b models.Food) int {
			return compareExpire(&a, &b, false)
		})
	case SortExpireDesc:
		slices.SortStableFunc(out, func(a, b models.Food) int {
			return compareExpire(&a, &b, true)
		})
	}

	return out
}

// compareExpire orders by calendar expiry date. Missing dates sort after
// dated listings regardless of direction, so the direction flag only flips
// the comparison between two real dates.
func compareExpire(a, b *models.Food, desc bool) int {
	switch {
	case a.HasExpireDate() && !b.HasExpireDate():
		return -1
	case !a.HasExpireDate() && b.HasExpireDate():
		return 1
	case !a.HasExpireDate() && !b.HasExpireDate():
		return 0
	}

	if a.ExpireDate.Equal(b.ExpireDate) {
		return 0
	}
	earlier := a.ExpireDate.Before(b.ExpireDate)
	if earlier != desc {
		return -1
	}
	return 1
}
