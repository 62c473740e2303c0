package services

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
	"github.com/cibounipi/mensabot/internal/store"
)

var scholarshipKeywords = map[string]struct{}{
	"borsa di studio": {},
	"borsista":        {},
	"borsa":           {},
	"idoneo":          {},
	"idonea":          {},
	"idonei":          {},
	"scholarship":     {},
}

const msgInvalidIncome = "Valore non valido. Scrivi il tuo ISEE (es. 18500 oppure 18500,50) o «idoneo» se sei idoneo alla borsa di studio."

// IsScholarshipInput reports whether the whole input is a scholarship
// keyword. Inner whitespace is collapsed and case is ignored.
func IsScholarshipInput(input string) bool {
	_, ok := scholarshipKeywords[strings.Join(strings.Fields(strings.ToLower(input)), " ")]
	return ok
}

// ParseIncome reads a declared income with comma or dot as the decimal
// separator; an optional euro sign and spaces are ignored.
func ParseIncome(input string) (float64, bool) {
	clean := strings.NewReplacer("€", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(input))
	clean = strings.Replace(clean, ",", ".", 1)
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// RateFor selects the band for the input: the scholarship band for a
// scholarship keyword, otherwise the ordinary band containing the income.
func (e *QueryEngine) RateFor(input string) (*entities.RateBand, bool) {
	return rateFor(e.Snapshot(), input)
}

func rateFor(snap *store.Snapshot, input string) (*entities.RateBand, bool) {
	if IsScholarshipInput(input) {
		return snap.Rates.Scholarship()
	}
	income, ok := ParseIncome(input)
	if !ok {
		return nil, false
	}
	return snap.Rates.Lookup(income)
}

// CutoverPassed reports whether now falls on or after the scholarship cutover date
func (e *QueryEngine) CutoverPassed(now time.Time) bool {
	local := now.In(e.Snapshot().Location)
	return local.Format(entities.DateLayout) >= e.cutover.Format(entities.DateLayout)
}

// RateView renders the prices for the input. For scholarship holders the
// view depends on the cutover date.
func (e *QueryEngine) RateView(input string, now time.Time) entities.RenderPayload {
	snap := e.Snapshot()
	band, ok := rateFor(snap, input)
	if !ok {
		return entities.RenderPayload{Body: msgInvalidIncome}
	}
	if band.IsScholarship {
		return e.scholarshipView(snap, band, now)
	}
	return entities.RenderPayload{Body: renderBand(snap, "TARIFFA: "+band.Label, band, "")}
}

// ScholarshipView renders the scholarship holders' prices
func (e *QueryEngine) ScholarshipView(now time.Time) entities.RenderPayload {
	snap := e.Snapshot()
	band, ok := snap.Rates.Scholarship()
	if !ok {
		return entities.RenderPayload{Body: msgInvalidIncome}
	}
	return e.scholarshipView(snap, band, now)
}

func (e *QueryEngine) scholarshipView(snap *store.Snapshot, scholarship *entities.RateBand, now time.Time) entities.RenderPayload {
	first := snap.Rates.ZeroIncome()
	if e.CutoverPassed(now) {
		note := "Dal " + longDate(e.cutover) + " agli idonei alla borsa di studio si applica la tariffa della fascia " + first.Label + "."
		return entities.RenderPayload{Body: renderBand(snap, "TARIFFA: "+scholarship.Label, first, note)}
	}

	note := "Dal " + longDate(e.cutover) + " gli idonei alla borsa di studio pagheranno la tariffa della fascia " + first.Label + "."
	return entities.RenderPayload{
		Body: renderBand(snap, "TARIFFA: "+scholarship.Label, scholarship, note),
		Actions: [][]entities.Action{
			{{Label: "TARIFFA DAL " + shortCutover(e.cutover), Token: navigation.MustEncode(navigation.ActionShowFirstBand)}},
		},
	}
}

// FirstBandPreview shows what scholarship holders will pay after the cutover
func (e *QueryEngine) FirstBandPreview() entities.RenderPayload {
	snap := e.Snapshot()
	first := snap.Rates.ZeroIncome()
	title := "TARIFFA IDONEI DAL " + longDate(e.cutover) + ": " + first.Label
	return entities.RenderPayload{
		Body: renderBand(snap, title, first, ""),
		Actions: [][]entities.Action{
			{{Label: "◀ INDIETRO", Token: navigation.MustEncode(navigation.ActionBackToScholarship)}},
		},
	}
}

func shortCutover(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + monthAbbrev[t.Month()] + " " + strconv.Itoa(t.Year())
}

// renderBand lists the four formulas with their prices, each followed by
// its combination note when one is known.
func renderBand(snap *store.Snapshot, title string, band *entities.RateBand, note string) string {
	var b strings.Builder
	b.WriteString("*" + title + "*\n\n")
	for _, field := range entities.PriceFields {
		b.WriteString("*" + field.Label() + "*: " + band.Prices[field].String() + "\n")
		if text, ok := snap.Combinations[field]; ok {
			b.WriteString(text + "\n")
		}
		b.WriteString("\n")
	}
	if note != "" {
		b.WriteString(note + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
