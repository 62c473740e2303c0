package entities

import (
	"fmt"
	"strings"
)

// PriceField identifies one of the four meal formulas priced per band
type PriceField string

const (
	PriceFullMeal PriceField = "pasto_completo"
	PriceReducedA PriceField = "pasto_ridotto_a"
	PriceReducedB PriceField = "pasto_ridotto_b"
	PriceReducedC PriceField = "pasto_ridotto_c"
)

// PriceFields lists the formulas in display order
var PriceFields = []PriceField{PriceFullMeal, PriceReducedA, PriceReducedB, PriceReducedC}

// Label returns the display name of the formula
func (f PriceField) Label() string {
	switch f {
	case PriceFullMeal:
		return "Pasto completo"
	case PriceReducedA:
		return "Pasto ridotto A"
	case PriceReducedB:
		return "Pasto ridotto B"
	case PriceReducedC:
		return "Pasto ridotto C"
	}
	return string(f)
}

// Price is an amount in euro; zero means free
type Price float64

// Free reports whether the meal costs nothing
func (p Price) Free() bool {
	return p <= 0
}

func (p Price) String() string {
	if p.Free() {
		return "Gratuito"
	}
	return "€ " + strings.Replace(fmt.Sprintf("%.2f", float64(p)), ".", ",", 1)
}

// RateBand is one income range with its meal prices. MaxIncome nil means
// unbounded above.
type RateBand struct {
	Label         string               `json:"label"`
	MinIncome     float64              `json:"min_income"`
	MaxIncome     *float64             `json:"max_income,omitempty"`
	IsScholarship bool                 `json:"is_scholarship"`
	Prices        map[PriceField]Price `json:"prices"`
}

// Contains applies the band's range rule: exclusive minimum, except for the
// zero-floor band which accepts zero, and inclusive maximum.
func (b *RateBand) Contains(income float64) bool {
	if b.IsScholarship || income < 0 {
		return false
	}
	if b.MinIncome != 0 && income <= b.MinIncome {
		return false
	}
	return b.MaxIncome == nil || income <= *b.MaxIncome
}

// CombinationNotes describes what each formula contains
type CombinationNotes map[PriceField]string
