package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

const testMenu = `{
  "2025-03-11": {
    "date": "2025-03-11",
    "Pranzo": {
      "Primi Piatti": ["pasta al pomodoro"],
      "Contorni": []
    }
  },
  "2025-03-10": {
    "date": "2025-03-10",
    "Pranzo": {
      "Secondi Piatti": [
        {"name": " Roast Chicken ", "link": "https://example.org/1", "available_at": ["Canteen A", "Canteen B"]},
        {"name": "Fish Fillet", "available_at": ["Canteen A", "Canteen A"]}
      ],
      "Primi Piatti": [
        {"name": "Risotto", "available_at": ["Mensa Sconosciuta"]}
      ]
    },
    "Cena": {}
  },
  "not-a-date": {"Pranzo": {"Primi": ["x"]}}
}`

const testFacilities = `[
  {
    "id": "a",
    "name": "Canteen A",
    "seats": 120,
    "opening_hours": {
      "Mensa": "Lun-Ven: 12:00-14:30 / 19:00-21:00",
      "Grab & Go": {"0": ["11:00-15:00"], "5": ["11:00 - 13:00"]}
    }
  },
  {"name": "Canteen B", "short_name": "Bi", "seats": "80"},
  {"name": "Mensa Martiri"}
]`

const testRates = `[
  {"min_isee": 0, "max_isee": 0, "scholarship": true, "pasto_completo": 0, "pasto_ridotto_a": 0, "pasto_ridotto_b": 0, "pasto_ridotto_c": 0, "original_label": "Idonei borsa di studio"},
  {"min_isee": 0, "max_isee": 27000, "scholarship": false, "pasto_completo": 2.8, "pasto_ridotto_a": 2.3, "pasto_ridotto_b": 2.3, "pasto_ridotto_c": 1.8},
  {"min_isee": 27000, "max_isee": 30000, "scholarship": false, "pasto_completo": "€ 3,50", "pasto_ridotto_a": 3, "pasto_ridotto_b": 3, "pasto_ridotto_c": 2.5, "original_label": "> € 27.000 ≤ € 30.000"},
  {"min_isee": 30000, "max_isee": null, "scholarship": false, "pasto_completo": 5, "pasto_ridotto_a": 4, "pasto_ridotto_b": 4, "pasto_ridotto_c": "gratuito"}
]`

const testCombinations = `{"pasto_completo": "Primo, secondo, contorno", "pasto_ridotto_a": "Primo e contorno", "unrelated": "x"}`

func testDocuments() Documents {
	return Documents{
		Menu:         []byte(testMenu),
		Facilities:   []byte(testFacilities),
		Rates:        []byte(testRates),
		Combinations: []byte(testCombinations),
	}
}

func buildTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Build(testDocuments(), time.UTC)
	require.NoError(t, err)
	return snap
}

func TestBuild_MenuKeepsCourseOrderAndNormalizesDishes(t *testing.T) {
	snap := buildTestSnapshot(t)

	assert.Equal(t, 2, snap.Menus.Len(), "invalid date keys are skipped")

	day, ok := snap.Menus.Day(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC))
	require.True(t, ok)

	lunch, ok := day.Meal(entities.MealLunch)
	require.True(t, ok)
	require.Len(t, lunch.Courses, 2)
	assert.Equal(t, "Secondi Piatti", lunch.Courses[0].Name)
	assert.Equal(t, "Primi Piatti", lunch.Courses[1].Name)

	chicken := lunch.Courses[0].Dishes[0]
	assert.Equal(t, "Roast Chicken", chicken.Name)
	assert.Equal(t, "https://example.org/1", chicken.Link)
	assert.Equal(t, []string{"a", "canteen-b"}, chicken.AvailableAt)

	fish := lunch.Courses[0].Dishes[1]
	assert.Equal(t, []string{"a"}, fish.AvailableAt, "duplicate references collapse")

	risotto := lunch.Courses[1].Dishes[0]
	assert.Equal(t, []string{"Mensa Sconosciuta"}, risotto.AvailableAt)
	assert.False(t, risotto.Legacy())

	_, ok = day.Meal(entities.MealDinner)
	assert.False(t, ok, "an empty meal object means no menu")
}

func TestBuild_LegacyDishStrings(t *testing.T) {
	snap := buildTestSnapshot(t)

	day, ok := snap.Menus.Day(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	lunch, _ := day.Meal(entities.MealLunch)
	require.Len(t, lunch.Courses, 2)

	dish := lunch.Courses[0].Dishes[0]
	assert.Equal(t, "pasta al pomodoro", dish.Name)
	assert.True(t, dish.Legacy())
	assert.True(t, dish.ServedAt("anything"))
	assert.Empty(t, lunch.Courses[1].Dishes)
}

func TestMenuStore_From(t *testing.T) {
	snap := buildTestSnapshot(t)

	days := snap.Menus.From(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-10", days[0].Date.Format(entities.DateLayout))
	assert.Equal(t, "2025-03-11", days[1].Date.Format(entities.DateLayout))

	assert.Len(t, snap.Menus.From(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)), 1)
	assert.Empty(t, snap.Menus.From(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)))
}

func TestBuild_Facilities(t *testing.T) {
	snap := buildTestSnapshot(t)
	fs := snap.Facilities

	require.Equal(t, 3, fs.Len())
	a, ok := fs.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", a.ShortName)
	assert.Equal(t, 120, a.Seats)

	require.Len(t, a.OpeningHours, 2)
	assert.Equal(t, "Mensa", a.OpeningHours[0].Label)
	assert.Len(t, a.OpeningHours[0].Timetable[0], 2)
	assert.Empty(t, a.OpeningHours[0].Timetable[5])

	grab := a.OpeningHours[1]
	assert.Equal(t, "Grab & Go", grab.Label)
	assert.Equal(t, "11:00-15:00", grab.Timetable[0][0].String())
	assert.Equal(t, "11:00-13:00", grab.Timetable[5][0].String())

	b, ok := fs.Get("canteen-b")
	require.True(t, ok)
	assert.Equal(t, "Bi", b.ShortName)
	assert.Equal(t, 80, b.Seats)

	m, ok := fs.Get("mensa-martiri")
	require.True(t, ok)
	assert.Equal(t, "Martiri", m.ShortName)

	for ref, want := range map[string]string{
		"a":             "a",
		"canteen a":     "a",
		"BI":            "canteen-b",
		"Mensa Martiri": "mensa-martiri",
	} {
		id, ok := fs.Resolve(ref)
		assert.True(t, ok, ref)
		assert.Equal(t, want, id, ref)
	}
	_, ok = fs.Resolve("nowhere")
	assert.False(t, ok)
	assert.Equal(t, 1, fs.Index("canteen-b"))
	assert.Equal(t, -1, fs.Index("nowhere"))
}

func TestBuild_DuplicateFacilityID(t *testing.T) {
	docs := testDocuments()
	docs.Facilities = []byte(`[{"id": "x", "name": "One"}, {"id": "x", "name": "Two"}]`)

	_, err := Build(docs, time.UTC)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), DocFacilities)
}

func TestBuild_MissingDocument(t *testing.T) {
	docs := testDocuments()
	docs.Rates = nil

	_, err := Build(docs, time.UTC)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Contains(t, err.Error(), DocRates)
}

func TestBuild_CombinationsAreOptional(t *testing.T) {
	docs := testDocuments()
	docs.Combinations = nil

	snap, err := Build(docs, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, snap.Combinations)
}

func TestBuild_RatesAndCombinations(t *testing.T) {
	snap := buildTestSnapshot(t)

	bands := snap.Rates.Bands()
	require.Len(t, bands, 4)
	assert.Equal(t, "≤ € 27.000", bands[1].Label, "missing labels are derived")
	assert.Equal(t, "> € 27.000 ≤ € 30.000", bands[2].Label)
	assert.Equal(t, entities.Price(3.5), bands[2].Prices[entities.PriceFullMeal])
	assert.True(t, bands[3].Prices[entities.PriceReducedC].Free())
	assert.Nil(t, bands[3].MaxIncome)

	sch, ok := snap.Rates.Scholarship()
	require.True(t, ok)
	assert.True(t, sch.IsScholarship)
	assert.Equal(t, 27000.0, *snap.Rates.ZeroIncome().MaxIncome)

	assert.Equal(t, entities.CombinationNotes{
		entities.PriceFullMeal: "Primo, secondo, contorno",
		entities.PriceReducedA: "Primo e contorno",
	}, snap.Combinations)
}

func TestRateTable_Lookup(t *testing.T) {
	snap := buildTestSnapshot(t)
	rates := snap.Rates

	tests := []struct {
		income float64
		want   string
		ok     bool
	}{
		{0, "≤ € 27.000", true},
		{15000, "≤ € 27.000", true},
		{27000, "≤ € 27.000", true},
		{27000.01, "> € 27.000 ≤ € 30.000", true},
		{30000, "> € 27.000 ≤ € 30.000", true},
		{1e9, "> € 30.000", true},
		{-1, "", false},
	}
	for _, tt := range tests {
		band, ok := rates.Lookup(tt.income)
		assert.Equal(t, tt.ok, ok, "income %v", tt.income)
		if tt.ok {
			assert.Equal(t, tt.want, band.Label, "income %v", tt.income)
			assert.False(t, band.IsScholarship)
		}
	}
}

func TestRateTable_AtMostOneBandMatches(t *testing.T) {
	snap := buildTestSnapshot(t)

	for income := 0.0; income <= 40000; income += 250 {
		matches := 0
		for _, b := range snap.Rates.Bands() {
			if b.Contains(income) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "income %v", income)
	}
}

func TestBuild_RateInvariants(t *testing.T) {
	tests := map[string]string{
		"gap between bands": `[
			{"min_isee": 0, "max_isee": 10000},
			{"min_isee": 12000, "max_isee": null}]`,
		"two zero floors": `[
			{"min_isee": 0, "max_isee": 10000},
			{"min_isee": 0, "max_isee": 20000}]`,
		"no zero floor": `[{"min_isee": 100, "max_isee": null}]`,
		"unbounded in the middle": `[
			{"min_isee": 0, "max_isee": null},
			{"min_isee": 10000, "max_isee": 20000}]`,
		"two scholarship bands": `[
			{"min_isee": 0, "max_isee": null},
			{"min_isee": 0, "max_isee": 0, "scholarship": true},
			{"min_isee": 0, "max_isee": 0, "scholarship": true}]`,
	}
	for name, rates := range tests {
		t.Run(name, func(t *testing.T) {
			docs := testDocuments()
			docs.Rates = []byte(rates)
			_, err := Build(docs, time.UTC)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		})
	}
}

func TestBuild_VersionIsStable(t *testing.T) {
	first := buildTestSnapshot(t)
	second := buildTestSnapshot(t)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, first.Version, 12)

	docs := testDocuments()
	docs.Combinations = []byte(`{}`)
	third, err := Build(docs, time.UTC)
	require.NoError(t, err)
	assert.NotEqual(t, first.Version, third.Version)
}

func TestHolder_Swap(t *testing.T) {
	first := buildTestSnapshot(t)
	h := NewHolder(first)
	assert.Same(t, first, h.Load())

	second := buildTestSnapshot(t)
	old := h.Swap(second)
	assert.Same(t, first, old)
	assert.Same(t, second, h.Load())
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"€ 2,80":   2.8,
		"2.80":     2.8,
		"27.000":   27000,
		"2.300,50": 2300.5,
		"Gratuito": 0,
		"free":     0,
	}
	for in, want := range tests {
		got, ok := parseAmount(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	_, ok := parseAmount("MAX")
	assert.False(t, ok)
}

func TestShortNameAndSlug(t *testing.T) {
	assert.Equal(t, "Martiri", ShortName("Mensa Martiri"))
	assert.Equal(t, "A", ShortName("Canteen A"))
	assert.Equal(t, "Cammeo", ShortName("ristorante Cammeo"))
	assert.Equal(t, "Mensa", ShortName("Mensa"))
	assert.Equal(t, "Bar Centrale", ShortName("Bar Centrale"))

	assert.Equal(t, "mensa-martiri", Slug("Mensa Martiri"))
	assert.Equal(t, "grab-go-piagge", Slug("Grab & Go Piagge!"))
}
