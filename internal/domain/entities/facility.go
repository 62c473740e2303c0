package entities

import (
	"fmt"
	"time"
)

// Facility represents a canteen or serving location
type Facility struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ShortName    string         `json:"short_name"`
	Seats        int            `json:"seats"`
	Services     []string       `json:"services,omitempty"`
	Coordinates  *Location      `json:"coordinates,omitempty"`
	Website      string         `json:"website,omitempty"`
	OpeningHours []ServiceHours `json:"opening_hours,omitempty"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// ServiceHours is the weekly timetable of one service type ("Mensa",
// "Grab & Go", ...) together with the text it was parsed from.
type ServiceHours struct {
	Label     string          `json:"label"`
	Raw       string          `json:"raw,omitempty"`
	Timetable WeeklyTimetable `json:"timetable"`
}

// TimeOfDay is a wall-clock time expressed in minutes since midnight
type TimeOfDay int

// NewTimeOfDay validates hour and minute
func NewTimeOfDay(hour, minute int) (TimeOfDay, bool) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return TimeOfDay(hour*60 + minute), true
}

// TimeOfDayOf extracts the wall-clock time of t in its own location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Interval is an opening window within a day, [Start, End)
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t falls within the interval
func (i Interval) Contains(t TimeOfDay) bool {
	return t >= i.Start && t < i.End
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// WeeklyTimetable maps weekday index (Monday = 0) to the day's intervals,
// sorted by start time. An empty day means closed.
type WeeklyTimetable [7][]Interval

// WeekdayIndex converts a time to the Monday-based weekday index
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
