package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

// Snapshot is one immutable, fully cross-referenced data set. Queries read
// a single snapshot for their whole duration.
type Snapshot struct {
	Version      string
	LoadedAt     time.Time
	Location     *time.Location
	Menus        *MenuStore
	Facilities   *FacilityStore
	Rates        *RateTable
	Combinations entities.CombinationNotes
}

// Build decodes and validates every document and links dish availability
// to facility ids. Dates in the menu are interpreted in loc.
func Build(docs Documents, loc *time.Location) (*Snapshot, error) {
	if loc == nil {
		loc = time.Local
	}
	if missing := docs.Missing(); len(missing) > 0 {
		return nil, apperrors.NewNotFoundError(missing[0])
	}

	facilities, err := buildFacilityStore(docs.Facilities)
	if err != nil {
		return nil, wrapDocument(DocFacilities, err)
	}
	menus, err := buildMenuStore(docs.Menu, loc, facilities.Resolve)
	if err != nil {
		return nil, wrapDocument(DocMenu, err)
	}
	rates, err := buildRateTable(docs.Rates)
	if err != nil {
		return nil, wrapDocument(DocRates, err)
	}
	notes, err := buildCombinationNotes(docs.Combinations)
	if err != nil {
		return nil, wrapDocument(DocCombinations, err)
	}

	return &Snapshot{
		Version:      documentsVersion(docs),
		LoadedAt:     time.Now().In(loc),
		Location:     loc,
		Menus:        menus,
		Facilities:   facilities,
		Rates:        rates,
		Combinations: notes,
	}, nil
}

func wrapDocument(name string, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		return apperrors.WrapValidationError(name, err)
	}
	return apperrors.WrapValidationError(name+": malformed document", err)
}

// documentsVersion fingerprints the raw documents; identical inputs give
// identical versions so cached renders stay valid across no-op reloads.
func documentsVersion(docs Documents) string {
	h := sha256.New()
	for _, data := range [][]byte{docs.Menu, docs.Facilities, docs.Rates, docs.Combinations} {
		h.Write(data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// Holder publishes the current snapshot to concurrent readers
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates a holder serving the given snapshot
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.current.Store(initial)
	return h
}

// Load returns the snapshot in effect
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap installs next and returns the snapshot it replaced
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}
