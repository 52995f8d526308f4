package grid

import (
	"math"
	"strconv"
	"strings"
)

// BedroomsFourPlus selects cards with four or more bedrooms
const BedroomsFourPlus = "4+"

// Filter narrows the rendered cards. Empty string fields match everything and
// a MaxPrice of 0 or less is unbounded, so the zero Filter matches every card.
type Filter struct {
	Type     string
	MinPrice float64
	MaxPrice float64
	Bedrooms string
	Status   string
}

// FilterEvent carries the raw filter form values
type FilterEvent struct {
	Type     string `form:"type" json:"type"`
	MinPrice string `form:"min_price" json:"min_price"`
	MaxPrice string `form:"max_price" json:"max_price"`
	Bedrooms string `form:"bedrooms" json:"bedrooms"`
	Status   string `form:"status" json:"status"`
}

// IsZero reports whether the event selects nothing
func (e FilterEvent) IsZero() bool {
	return e == FilterEvent{}
}

// ParseFilter converts form values. A missing or unparsable minimum is 0;
// a missing, unparsable or zero maximum is unbounded.
func ParseFilter(e FilterEvent) Filter {
	f := Filter{
		Type:     strings.TrimSpace(e.Type),
		Bedrooms: strings.TrimSpace(e.Bedrooms),
		Status:   strings.TrimSpace(e.Status),
		MaxPrice: math.Inf(1),
	}
	if v, ok := parsePrice(e.MinPrice); ok {
		f.MinPrice = v
	}
	if v, ok := parsePrice(e.MaxPrice); ok && v != 0 {
		f.MaxPrice = v
	}
	return f
}

func parsePrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Matches reports whether a card passes every criterion
func (f Filter) Matches(c Card) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if c.Price < f.MinPrice || (f.MaxPrice > 0 && c.Price > f.MaxPrice) {
		return false
	}
	switch f.Bedrooms {
	case "":
	case BedroomsFourPlus:
		if c.Bedrooms < 4 {
			return false
		}
	default:
		if strconv.Itoa(c.Bedrooms) != f.Bedrooms {
			return false
		}
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}
