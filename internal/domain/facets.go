package domain

import (
	"sort"
)

// FacetCount is a single facet bucket: a value or id, its display label, and
// the number of matching products.
type FacetCount struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PriceRange is the min/max price over the current working set, in minor units.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Facets holds filter counts for the current query context.
type Facets struct {
	PriceRange PriceRange   `json:"price_range"`
	Categories []FacetCount `json:"categories"`
	Brands     []FacetCount `json:"brands"`
	Colors     []FacetCount `json:"colors"`
	Sizes      []FacetCount `json:"sizes"`
}

// sizeOrder is the fixed logical ordering for garment sizes. Sizes not in
// this ladder sort alphabetically after the known ones.
var sizeOrder = map[string]int{
	"XXS":  0,
	"XS":   1,
	"S":    2,
	"M":    3,
	"L":    4,
	"XL":   5,
	"XXL":  6,
	"XXXL": 7,
}

// EmptyFacets returns the canonical empty facets value used as the universal
// fallback when facet computation fails on every backend.
func EmptyFacets() *Facets {
	return &Facets{
		Categories: []FacetCount{},
		Brands:     []FacetCount{},
		Colors:     []FacetCount{},
		Sizes:      []FacetCount{},
	}
}

// IsEmpty reports whether f carries no facet data at all, i.e. it is
// equivalent to the EmptyFacets sentinel.
func (f *Facets) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.PriceRange.Min == 0 && f.PriceRange.Max == 0 &&
		len(f.Categories) == 0 && len(f.Brands) == 0 &&
		len(f.Colors) == 0 && len(f.Sizes) == 0
}

// SortSizes re-orders size facet counts by the fixed size ladder. Unknown
// sizes are appended after the known ones in alphabetical order.
func SortSizes(sizes []FacetCount) {
	sort.SliceStable(sizes, func(i, j int) bool {
		oi, knownI := sizeOrder[sizes[i].Value]
		oj, knownJ := sizeOrder[sizes[j].Value]
		switch {
		case knownI && knownJ:
			return oi < oj
		case knownI:
			return true
		case knownJ:
			return false
		default:
			return sizes[i].Value < sizes[j].Value
		}
	})
}
