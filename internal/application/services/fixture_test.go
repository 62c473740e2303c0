package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/store"
)

const fixtureMenu = `{
  "2025-03-09": {
    "Pranzo": {"Primi Piatti": ["Risotto"]}
  },
  "2025-03-10": {
    "date": "2025-03-10",
    "Pranzo": {
      "Primi Piatti": [
        {"name": "pasta al pomodoro", "available_at": ["a", "b"]},
        {"name": "Risotto", "link": "https://example.org/risotto", "available_at": ["Mensa Centrale"]}
      ],
      "Secondi Piatti": [
        {"name": "Pollo arrosto", "available_at": ["Martiri"]}
      ],
      "Contorni": ["insalata"]
    },
    "Cena": {
      "Primi Piatti": [{"name": "Minestrone", "available_at": ["a"]}]
    }
  },
  "2025-03-12": {
    "Pranzo": {
      "Primi Piatti": [
        {"name": "Risotto", "available_at": ["b"]},
        {"name": "risotto ", "available_at": ["a"]}
      ]
    }
  }
}`

const fixtureFacilities = `[
  {
    "id": "a",
    "name": "Mensa Centrale",
    "seats": 120,
    "services": ["Pranzo", "Cena"],
    "website": "https://example.org/a",
    "coordinates": {"lat": 43.7, "lon": 10.4},
    "opening_hours": {
      "Mensa": "Lun-Ven: 12:00-14:30 / 19:00-21:00",
      "Bar": "Lun-Ven: 08:00-18:00"
    }
  },
  {"id": "b", "name": "Mensa Martiri"}
]`

const fixtureRates = `[
  {"min_isee": 0, "max_isee": 0, "scholarship": true, "pasto_completo": 0, "pasto_ridotto_a": 0, "pasto_ridotto_b": 0, "pasto_ridotto_c": 0},
  {"min_isee": 0, "max_isee": 27000, "scholarship": false, "pasto_completo": 2.8, "pasto_ridotto_a": 2.3, "pasto_ridotto_b": 2.3, "pasto_ridotto_c": 1.8},
  {"min_isee": 27000, "max_isee": null, "scholarship": false, "pasto_completo": 4, "pasto_ridotto_a": 3.5, "pasto_ridotto_b": 3.5, "pasto_ridotto_c": 3}
]`

const fixtureCombinations = `{"pasto_completo": "Primo, secondo, contorno", "pasto_ridotto_a": "Primo e contorno"}`

var cutover = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

// 2025-03-10 is a Monday
func monday(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func fixtureDocuments() store.Documents {
	return store.Documents{
		Menu:         []byte(fixtureMenu),
		Facilities:   []byte(fixtureFacilities),
		Rates:        []byte(fixtureRates),
		Combinations: []byte(fixtureCombinations),
	}
}

func newTestEngine(t *testing.T) *services.QueryEngine {
	t.Helper()
	return newEngineWithMenu(t, fixtureMenu)
}

func newEngineWithMenu(t *testing.T, menu string) *services.QueryEngine {
	t.Helper()
	docs := fixtureDocuments()
	docs.Menu = []byte(menu)
	snap, err := store.Build(docs, time.UTC)
	require.NoError(t, err)
	return services.NewQueryEngine(store.NewHolder(snap), cutover)
}
