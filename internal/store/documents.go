// Package store holds the immutable in-memory data set the query engine
// answers from: menus, facilities, rate bands and combination notes.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// Document names as published by the scraping jobs
const (
	DocMenu         = "menu.json"
	DocFacilities   = "canteens.json"
	DocRates        = "rates.json"
	DocCombinations = "combinations.json"
)

// RequiredDocuments must all be present to build a snapshot
var RequiredDocuments = []string{DocMenu, DocFacilities, DocRates}

// Documents carries the raw bytes of every source document
type Documents struct {
	Menu         []byte
	Facilities   []byte
	Rates        []byte
	Combinations []byte
}

// Set stores data under the named document; unknown names are ignored.
func (d *Documents) Set(name string, data []byte) {
	switch name {
	case DocMenu:
		d.Menu = data
	case DocFacilities:
		d.Facilities = data
	case DocRates:
		d.Rates = data
	case DocCombinations:
		d.Combinations = data
	}
}

// Get returns the bytes stored under the named document
func (d *Documents) Get(name string) []byte {
	switch name {
	case DocMenu:
		return d.Menu
	case DocFacilities:
		return d.Facilities
	case DocRates:
		return d.Rates
	case DocCombinations:
		return d.Combinations
	}
	return nil
}

// Missing lists the required documents that are empty
func (d *Documents) Missing() []string {
	var missing []string
	for _, name := range RequiredDocuments {
		if len(d.Get(name)) == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// objectField is one member of a JSON object, kept in document order
type objectField struct {
	Key   string
	Value json.RawMessage
}

// decodeOrderedObject splits a JSON object into its members without losing
// their order. A null value decodes to no fields.
func decodeOrderedObject(data []byte) ([]objectField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []objectField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields = append(fields, objectField{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// DishEntry is one element of a course list. Older menu documents store a
// dish as a bare name; current ones store a record. Exactly one of the two
// variants is set after decoding.
type DishEntry struct {
	LegacyName string
	Record     *DishRecord
}

// DishRecord is the current dish shape
type DishRecord struct {
	Name        string   `json:"name"`
	Link        string   `json:"link"`
	AvailableAt []string `json:"available_at"`
}

// UnmarshalJSON implements json.Unmarshaler
func (e *DishEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &e.LegacyName)
	}
	var rec DishRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return err
	}
	e.Record = &rec
	return nil
}

// Normalize converts either variant to the record form. Facility references
// are mapped through resolve; unknown references are kept verbatim so the
// dish never silently widens to "served everywhere".
func (e DishEntry) Normalize(resolve func(string) (string, bool)) entities.Dish {
	if e.Record == nil {
		return entities.Dish{Name: strings.TrimSpace(e.LegacyName)}
	}

	dish := entities.Dish{
		Name: strings.TrimSpace(e.Record.Name),
		Link: strings.TrimSpace(e.Record.Link),
	}
	seen := make(map[string]bool, len(e.Record.AvailableAt))
	for _, ref := range e.Record.AvailableAt {
		id := strings.TrimSpace(ref)
		if resolved, ok := resolve(id); ok {
			id = resolved
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		dish.AvailableAt = append(dish.AvailableAt, id)
	}
	return dish
}

// flexNumber accepts a JSON number or a numeric string such as "€ 2,80",
// "27.000" or "gratuito". Null decodes to an unset value.
type flexNumber struct {
	Value float64
	Set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = flexNumber{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		v, ok := parseAmount(s)
		if !ok {
			// "MAX" and similar markers mean unbounded
			*n = flexNumber{}
			return nil
		}
		*n = flexNumber{Value: v, Set: true}
		return nil
	}
	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		return err
	}
	*n = flexNumber{Value: v, Set: true}
	return nil
}

var freeKeywords = []string{"gratuito", "gratuita", "free"}

// parseAmount reads an Italian-formatted amount. Dots are thousands
// separators and the comma is the decimal separator; a free keyword is zero.
func parseAmount(s string) (float64, bool) {
	clean := strings.ToLower(strings.TrimSpace(s))
	for _, kw := range freeKeywords {
		if strings.Contains(clean, kw) {
			return 0, true
		}
	}
	clean = strings.NewReplacer("€", "", " ", "", "\u00a0", "").Replace(clean)
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	} else if strings.Count(clean, ".") == 1 && len(clean)-strings.Index(clean, ".") == 4 {
		// "27.000" is twenty-seven thousand, not twenty-seven
		clean = strings.ReplaceAll(clean, ".", "")
	}
	if clean == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
