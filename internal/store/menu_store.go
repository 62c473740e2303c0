package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// MenuStore indexes menu days by ISO date
type MenuStore struct {
	days  map[string]*entities.MenuDay
	dates []string
}

// Day returns the menu published for the calendar date of t
func (s *MenuStore) Day(t time.Time) (*entities.MenuDay, bool) {
	day, ok := s.days[t.Format(entities.DateLayout)]
	return day, ok
}

// From returns every menu day on or after the calendar date of today, in
// ascending date order.
func (s *MenuStore) From(today time.Time) []*entities.MenuDay {
	key := today.Format(entities.DateLayout)
	i := sort.SearchStrings(s.dates, key)
	out := make([]*entities.MenuDay, 0, len(s.dates)-i)
	for _, d := range s.dates[i:] {
		out = append(out, s.days[d])
	}
	return out
}

// Len returns the number of dates with a menu
func (s *MenuStore) Len() int {
	return len(s.dates)
}

// buildMenuStore decodes the date-keyed menu document. Dates that do not
// parse are skipped; meals other than lunch and dinner are ignored.
func buildMenuStore(data []byte, loc *time.Location, resolve func(string) (string, bool)) (*MenuStore, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode menu document: %w", err)
	}

	store := &MenuStore{days: make(map[string]*entities.MenuDay, len(raw))}
	for key, members := range raw {
		date, err := time.ParseInLocation(entities.DateLayout, key, loc)
		if err != nil {
			log.Warn().Str("date", key).Msg("skipping menu day with invalid date")
			continue
		}

		day := &entities.MenuDay{Date: date, Meals: make(map[entities.Meal]entities.MealMenu)}
		for _, meal := range entities.Meals {
			value, ok := members[string(meal)]
			if !ok {
				continue
			}
			menu, err := decodeMealMenu(value, resolve)
			if err != nil {
				return nil, fmt.Errorf("menu %s %s: %w", key, meal, err)
			}
			if len(menu.Courses) > 0 {
				day.Meals[meal] = menu
			}
		}

		store.days[key] = day
		store.dates = append(store.dates, key)
	}
	sort.Strings(store.dates)
	return store, nil
}

func decodeMealMenu(data json.RawMessage, resolve func(string) (string, bool)) (entities.MealMenu, error) {
	fields, err := decodeOrderedObject(data)
	if err != nil {
		return entities.MealMenu{}, err
	}

	var menu entities.MealMenu
	for _, f := range fields {
		var entries []DishEntry
		if err := json.Unmarshal(f.Value, &entries); err != nil {
			return entities.MealMenu{}, fmt.Errorf("course %q: %w", f.Key, err)
		}
		course := entities.Course{Name: f.Key, Dishes: make([]entities.Dish, 0, len(entries))}
		for _, e := range entries {
			dish := e.Normalize(resolve)
			if dish.Name == "" {
				continue
			}
			course.Dishes = append(course.Dishes, dish)
		}
		menu.Courses = append(menu.Courses, course)
	}
	return menu, nil
}
