package services

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
	"github.com/cibounipi/mensabot/internal/store"
)

// SearchLimit caps the number of substring search hits
const SearchLimit = 49

const (
	msgNoOccurrences = "Nessuna occorrenza futura trovata."
	inlinePrefix     = "p:"
)

// Occurrence is one (date, meal) on which a dish is served
type Occurrence struct {
	Date       time.Time     `json:"date"`
	Meal       entities.Meal `json:"meal"`
	DaysAhead  int           `json:"days_ahead"`
	Facilities []string      `json:"facilities"`
}

// DishSummary is one substring search hit
type DishSummary struct {
	Name       string        `json:"name"`
	Date       time.Time     `json:"date"`
	DateLabel  string        `json:"date_label"`
	Meal       entities.Meal `json:"meal"`
	DaysAhead  int           `json:"days_ahead"`
	Facilities []string      `json:"facilities"`
	Token      string        `json:"token"`
}

// FindOccurrences lists the future (date, meal) pairs serving the dish,
// matched on the upper-cased trimmed name. A dish listed under several
// courses of the same meal yields one occurrence with the union of the
// facilities.
func (e *QueryEngine) FindOccurrences(name string, now time.Time) []Occurrence {
	return findOccurrences(e.Snapshot(), name, now)
}

func findOccurrences(snap *store.Snapshot, name string, now time.Time) []Occurrence {
	target := entities.DishKey(name)
	today := civilDay(now.In(snap.Location))

	var out []Occurrence
	for _, day := range snap.Menus.From(today) {
		for _, meal := range entities.Meals {
			menu, ok := day.Meal(meal)
			if !ok {
				continue
			}
			found := false
			var ids []string
			for _, course := range menu.Courses {
				for _, dish := range course.Dishes {
					if dish.Key() != target {
						continue
					}
					found = true
					for _, id := range dish.AvailableAt {
						if !slices.Contains(ids, id) {
							ids = append(ids, id)
						}
					}
				}
			}
			if found {
				out = append(out, Occurrence{
					Date:       day.Date,
					Meal:       meal,
					DaysAhead:  daysBetween(today, day.Date),
					Facilities: facilityShortNames(snap, ids),
				})
			}
		}
	}
	return out
}

// OccurrenceTable renders the occurrences of a dish as a monospace table
func (e *QueryEngine) OccurrenceTable(name string, now time.Time) string {
	snap := e.Snapshot()
	return occurrenceTable(entities.DishKey(name), findOccurrences(snap, name, now))
}

// OccurrenceView is the occurrence table with a refresh action
func (e *QueryEngine) OccurrenceView(name string, now time.Time) entities.RenderPayload {
	key := entities.DishKey(name)
	return entities.RenderPayload{
		Body: e.OccurrenceTable(key, now),
		Actions: [][]entities.Action{
			{{Label: "AGGIORNA", Token: navigation.MustEncode(navigation.ActionRefreshDish, key)}},
		},
	}
}

func occurrenceTable(title string, occurrences []Occurrence) string {
	if len(occurrences) == 0 {
		return "*" + title + "*\n" + msgNoOccurrences
	}

	lines := make([]string, 0, len(occurrences)+3)
	lines = append(lines, "*"+title+"*", "```")
	for _, o := range occurrences {
		row := runewidth.FillRight(weekdayAbbrev(o.Date), 3) + " " +
			runewidth.FillRight(dayMonth(o.Date), 13) + " " +
			runewidth.FillRight(strconv.Itoa(o.DaysAhead)+" GG", 6) + " " +
			o.Meal.Flag()
		if len(o.Facilities) > 0 {
			row += "  " + strings.Join(o.Facilities, ", ")
		}
		lines = append(lines, row)
	}
	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

// SearchDishes returns up to SearchLimit dish instances whose name contains
// term, scanning dates ascending, then meals, then courses in document
// order.
func (e *QueryEngine) SearchDishes(term string, now time.Time) []DishSummary {
	return searchDishes(e.Snapshot(), term, now)
}

func searchDishes(snap *store.Snapshot, term string, now time.Time) []DishSummary {
	needle := strings.ToLower(strings.TrimSpace(term))
	today := civilDay(now.In(snap.Location))

	var out []DishSummary
	for _, day := range snap.Menus.From(today) {
		for _, meal := range entities.Meals {
			menu, ok := day.Meal(meal)
			if !ok {
				continue
			}
			for _, course := range menu.Courses {
				for _, dish := range course.Dishes {
					if len(out) >= SearchLimit {
						return out
					}
					if !strings.Contains(strings.ToLower(dish.Name), needle) {
						continue
					}
					key := dish.Key()
					out = append(out, DishSummary{
						Name:       key,
						Date:       day.Date,
						DateLabel:  shortDate(day.Date),
						Meal:       meal,
						DaysAhead:  daysBetween(today, day.Date),
						Facilities: facilityShortNames(snap, dish.AvailableAt),
						Token:      navigation.MustEncode(navigation.ActionRefreshDish, key),
					})
				}
			}
		}
	}
	return out
}

// InlineQuery answers the inline mode: an empty query offers today's lunch
// menu, a "p:" query offers one occurrence table per search hit, anything
// else gets no results.
func (e *QueryEngine) InlineQuery(query string, now time.Time) []entities.InlineResult {
	if query == "" {
		today := e.Today(now)
		return []entities.InlineResult{{
			ID:          uuid.NewString(),
			Title:       "MENU DI OGGI",
			Description: "Visualizza il menu di oggi...",
			Payload:     e.MenuView(today, entities.MealLunch, FilterNone, now),
		}}
	}
	if !strings.HasPrefix(strings.ToLower(query), inlinePrefix) {
		return nil
	}

	snap := e.Snapshot()
	hits := searchDishes(snap, query[len(inlinePrefix):], now)
	results := make([]entities.InlineResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, entities.InlineResult{
			ID:          uuid.NewString(),
			Title:       hit.Name,
			Description: hit.DateLabel,
			DaysAhead:   hit.DaysAhead,
			Payload: entities.RenderPayload{
				Body: occurrenceTable(hit.Name, findOccurrences(snap, hit.Name, now)),
				Actions: [][]entities.Action{
					{{Label: "AGGIORNA", Token: hit.Token}},
				},
			},
		})
	}
	return results
}
