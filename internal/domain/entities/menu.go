package entities

import (
	"slices"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used as menu key and in action tokens
const DateLayout = time.DateOnly

// Meal is one of the two daily service windows, named as in the menu document
type Meal string

const (
	MealLunch  Meal = "Pranzo"
	MealDinner Meal = "Cena"
)

// Meals lists the meals in display and scan order
var Meals = []Meal{MealLunch, MealDinner}

// ParseMeal accepts the document names and their English equivalents,
// case-insensitively.
func ParseMeal(s string) (Meal, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pranzo", "lunch":
		return MealLunch, true
	case "cena", "dinner":
		return MealDinner, true
	}
	return "", false
}

// Other returns the opposite meal
func (m Meal) Other() Meal {
	if m == MealDinner {
		return MealLunch
	}
	return MealDinner
}

// Flag is the one-letter marker used in occurrence tables
func (m Meal) Flag() string {
	if m == MealDinner {
		return "C"
	}
	return "P"
}

// Article returns the meal preceded by its Italian article ("il pranzo", "la cena")
func (m Meal) Article() string {
	if m == MealDinner {
		return "la cena"
	}
	return "il pranzo"
}

// Dish is a single dish as served on a given date and meal.
// AvailableAt holds facility ids; an empty set marks a legacy record whose
// availability is unknown and treated as "everywhere".
type Dish struct {
	Name        string   `json:"name"`
	Link        string   `json:"link,omitempty"`
	AvailableAt []string `json:"available_at,omitempty"`
}

// Key is the dish identity used by occurrence search
func (d Dish) Key() string {
	return DishKey(d.Name)
}

// DishKey normalizes a dish name to its identity form
func DishKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Legacy reports whether the dish carries no availability information
func (d Dish) Legacy() bool {
	return len(d.AvailableAt) == 0
}

// ServedAt reports whether the dish is available at the facility
func (d Dish) ServedAt(facilityID string) bool {
	return d.Legacy() || slices.Contains(d.AvailableAt, facilityID)
}

// Course is a menu subsection with its dishes in document order
type Course struct {
	Name   string `json:"name"`
	Dishes []Dish `json:"dishes"`
}

// MealMenu is the ordered list of courses published for one meal
type MealMenu struct {
	Courses []Course `json:"courses"`
}

// MenuDay holds the meals published for one calendar date. A meal missing
// from Meals means no menu was published for it.
type MenuDay struct {
	Date  time.Time         `json:"date"`
	Meals map[Meal]MealMenu `json:"meals"`
}

// Meal returns the menu for the given meal, if published
func (d *MenuDay) Meal(m Meal) (MealMenu, bool) {
	menu, ok := d.Meals[m]
	return menu, ok
}
