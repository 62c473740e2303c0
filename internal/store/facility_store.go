package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/schedule"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

// FacilityStore holds facilities in document order with id and name lookup
type FacilityStore struct {
	facilities []*entities.Facility
	byID       map[string]*entities.Facility
	byName     map[string]*entities.Facility
}

// All returns the facilities in document order
func (s *FacilityStore) All() []*entities.Facility {
	return s.facilities
}

// Get returns the facility with the given id
func (s *FacilityStore) Get(id string) (*entities.Facility, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// Resolve maps a facility reference (id, full name or short name, any
// case) to its id.
func (s *FacilityStore) Resolve(ref string) (string, bool) {
	if f, ok := s.byID[ref]; ok {
		return f.ID, true
	}
	if f, ok := s.byName[strings.ToLower(strings.TrimSpace(ref))]; ok {
		return f.ID, true
	}
	return "", false
}

// Index returns the document position of the facility, or -1
func (s *FacilityStore) Index(id string) int {
	for i, f := range s.facilities {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of facilities
func (s *FacilityStore) Len() int {
	return len(s.facilities)
}

type facilityRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	ShortName    string             `json:"short_name"`
	Seats        flexNumber         `json:"seats"`
	Services     []string           `json:"services"`
	Coordinates  *entities.Location `json:"coordinates"`
	Website      string             `json:"website"`
	OpeningHours json.RawMessage    `json:"opening_hours"`
}

func buildFacilityStore(data []byte) (*FacilityStore, error) {
	var records []facilityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode facility document: %w", err)
	}

	store := &FacilityStore{
		byID:   make(map[string]*entities.Facility, len(records)),
		byName: make(map[string]*entities.Facility, 2*len(records)),
	}
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, apperrors.NewValidationErrorf("facility #%d has no name", i)
		}

		f := &entities.Facility{
			ID:          strings.TrimSpace(rec.ID),
			Name:        name,
			ShortName:   strings.TrimSpace(rec.ShortName),
			Seats:       int(rec.Seats.Value),
			Services:    rec.Services,
			Coordinates: rec.Coordinates,
			Website:     strings.TrimSpace(rec.Website),
		}
		if f.ID == "" {
			f.ID = Slug(name)
		}
		if f.ShortName == "" {
			f.ShortName = ShortName(name)
		}
		if _, dup := store.byID[f.ID]; dup {
			return nil, apperrors.NewValidationErrorf("duplicate facility id %q", f.ID)
		}

		hours, err := decodeOpeningHours(rec.OpeningHours)
		if err != nil {
			return nil, apperrors.WrapValidationError(fmt.Sprintf("facility %q opening hours", f.ID), err)
		}
		f.OpeningHours = hours

		store.facilities = append(store.facilities, f)
		store.byID[f.ID] = f
		store.byName[strings.ToLower(f.Name)] = f
		if _, taken := store.byName[strings.ToLower(f.ShortName)]; !taken {
			store.byName[strings.ToLower(f.ShortName)] = f
		}
	}
	return store, nil
}

// decodeOpeningHours accepts both the free-text form ("Mensa": "Lun-Ven:
// 12:00-14:30") and the pre-parsed weekday map written by the migration job.
func decodeOpeningHours(data json.RawMessage) ([]entities.ServiceHours, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	fields, err := decodeOrderedObject(data)
	if err != nil {
		return nil, err
	}

	hours := make([]entities.ServiceHours, 0, len(fields))
	for _, f := range fields {
		var text string
		if err := json.Unmarshal(f.Value, &text); err == nil {
			hours = append(hours, entities.ServiceHours{
				Label:     f.Key,
				Raw:       text,
				Timetable: schedule.Parse(text),
			})
			continue
		}

		var slots map[string][]string
		if err := json.Unmarshal(f.Value, &slots); err != nil {
			return nil, fmt.Errorf("service %q: %w", f.Key, err)
		}
		days := make(map[int][]string, len(slots))
		for k, v := range slots {
			d, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("service %q: weekday key %q", f.Key, k)
			}
			days[d] = v
		}
		hours = append(hours, entities.ServiceHours{
			Label:     f.Key,
			Timetable: schedule.FromSlots(days),
		})
	}
	return hours, nil
}

var shortNamePrefixes = []string{"mensa", "canteen", "ristorante"}

// ShortName strips a leading generic word from a facility name:
// "Mensa Martiri" becomes "Martiri", "Canteen A" becomes "A".
func ShortName(name string) string {
	first, rest, ok := strings.Cut(strings.TrimSpace(name), " ")
	if !ok {
		return name
	}
	for _, p := range shortNamePrefixes {
		if strings.EqualFold(first, p) {
			if rest = strings.TrimSpace(rest); rest != "" {
				return rest
			}
		}
	}
	return name
}

// Slug derives a stable identifier from a name
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if r > unicode.MaxASCII {
				continue
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
