package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

// RateTable holds the income bands in document order
type RateTable struct {
	bands       []entities.RateBand
	scholarship int
	zeroIncome  int
}

// Bands returns every band in document order
func (t *RateTable) Bands() []entities.RateBand {
	return t.bands
}

// Scholarship returns the band reserved to scholarship holders
func (t *RateTable) Scholarship() (*entities.RateBand, bool) {
	if t.scholarship < 0 {
		return nil, false
	}
	return &t.bands[t.scholarship], true
}

// ZeroIncome returns the ordinary band whose floor is zero
func (t *RateTable) ZeroIncome() *entities.RateBand {
	return &t.bands[t.zeroIncome]
}

// Lookup returns the first ordinary band containing income. Bands are
// disjoint by construction, so at most one can match.
func (t *RateTable) Lookup(income float64) (*entities.RateBand, bool) {
	if math.IsNaN(income) || math.IsInf(income, 0) {
		return nil, false
	}
	for i := range t.bands {
		if t.bands[i].Contains(income) {
			return &t.bands[i], true
		}
	}
	return nil, false
}

type rateRecord struct {
	MinIncome     flexNumber `json:"min_isee"`
	MaxIncome     flexNumber `json:"max_isee"`
	Scholarship   bool       `json:"scholarship"`
	FullMeal      flexNumber `json:"pasto_completo"`
	ReducedA      flexNumber `json:"pasto_ridotto_a"`
	ReducedB      flexNumber `json:"pasto_ridotto_b"`
	ReducedC      flexNumber `json:"pasto_ridotto_c"`
	OriginalLabel string     `json:"original_label"`
}

func buildRateTable(data []byte) (*RateTable, error) {
	var records []rateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode rate document: %w", err)
	}

	table := &RateTable{
		bands:       make([]entities.RateBand, 0, len(records)),
		scholarship: -1,
		zeroIncome:  -1,
	}
	for i, rec := range records {
		band := entities.RateBand{
			Label:         strings.TrimSpace(rec.OriginalLabel),
			MinIncome:     rec.MinIncome.Value,
			IsScholarship: rec.Scholarship,
			Prices: map[entities.PriceField]entities.Price{
				entities.PriceFullMeal: entities.Price(rec.FullMeal.Value),
				entities.PriceReducedA: entities.Price(rec.ReducedA.Value),
				entities.PriceReducedB: entities.Price(rec.ReducedB.Value),
				entities.PriceReducedC: entities.Price(rec.ReducedC.Value),
			},
		}
		if rec.MaxIncome.Set {
			upper := rec.MaxIncome.Value
			band.MaxIncome = &upper
		}
		if band.Label == "" {
			band.Label = bandLabel(band)
		}

		switch {
		case band.IsScholarship:
			if table.scholarship >= 0 {
				return nil, apperrors.NewValidationError("more than one scholarship band")
			}
			table.scholarship = i
		case band.MinIncome == 0:
			if table.zeroIncome >= 0 {
				return nil, apperrors.NewValidationError("more than one band starts at zero income")
			}
			table.zeroIncome = i
		}
		table.bands = append(table.bands, band)
	}

	if table.zeroIncome < 0 {
		return nil, apperrors.NewValidationError("no band starts at zero income")
	}
	if err := validateContiguous(table.bands); err != nil {
		return nil, err
	}
	return table, nil
}

// validateContiguous checks that the ordinary bands, sorted by floor, chain
// without gaps or overlaps and that only the last one is unbounded.
func validateContiguous(bands []entities.RateBand) error {
	ordinary := make([]entities.RateBand, 0, len(bands))
	for _, b := range bands {
		if !b.IsScholarship {
			ordinary = append(ordinary, b)
		}
	}
	sort.SliceStable(ordinary, func(i, j int) bool {
		return ordinary[i].MinIncome < ordinary[j].MinIncome
	})

	for i, b := range ordinary {
		if b.MaxIncome != nil && *b.MaxIncome <= b.MinIncome {
			return apperrors.NewValidationErrorf("band %q: max income must exceed min income", b.Label)
		}
		if i == 0 {
			continue
		}
		prev := ordinary[i-1]
		if prev.MaxIncome == nil {
			return apperrors.NewValidationErrorf("band %q: only the last band may be unbounded", prev.Label)
		}
		if *prev.MaxIncome != b.MinIncome {
			return apperrors.NewValidationErrorf("band %q: starts at %.2f, previous band ends at %.2f",
				b.Label, b.MinIncome, *prev.MaxIncome)
		}
	}
	return nil
}

func bandLabel(b entities.RateBand) string {
	switch {
	case b.IsScholarship:
		return "Idonei borsa di studio"
	case b.MaxIncome == nil:
		return "> € " + formatThousands(b.MinIncome)
	case b.MinIncome == 0:
		return "≤ € " + formatThousands(*b.MaxIncome)
	default:
		return "> € " + formatThousands(b.MinIncome) + " ≤ € " + formatThousands(*b.MaxIncome)
	}
}

// formatThousands renders a whole amount with dot thousands separators
func formatThousands(v float64) string {
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func buildCombinationNotes(data []byte) (entities.CombinationNotes, error) {
	notes := entities.CombinationNotes{}
	if len(data) == 0 {
		return notes, nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode combination document: %w", err)
	}
	for _, field := range entities.PriceFields {
		if text := strings.TrimSpace(raw[string(field)]); text != "" {
			notes[field] = text
		}
	}
	return notes, nil
}
