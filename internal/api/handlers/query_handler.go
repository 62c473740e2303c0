package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
)

// QueryHandler exposes the query engine and the navigator over HTTP. Every
// view is returned as a RenderPayload for the chat transport to display.
type QueryHandler struct {
	engine    *services.QueryEngine
	navigator *services.Navigator
	now       func() time.Time
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(engine *services.QueryEngine, navigator *services.Navigator) *QueryHandler {
	return &QueryHandler{
		engine:    engine,
		navigator: navigator,
		now:       time.Now,
	}
}

// WithClock replaces the handler's clock
func (h *QueryHandler) WithClock(now func() time.Time) *QueryHandler {
	h.now = now
	return h
}

// CacheScope namespaces cached renders by snapshot version and local date,
// so a reload or midnight makes earlier entries unreachable.
func (h *QueryHandler) CacheScope() (string, bool) {
	snap := h.engine.Snapshot()
	if snap == nil {
		return "", false
	}
	today := h.engine.Today(h.now()).Format(entities.DateLayout)
	return services.RenderCachePrefix + snap.Version + ":" + today, true
}

func (h *QueryHandler) ready(w http.ResponseWriter) bool {
	if h.engine.Snapshot() == nil {
		respondWithError(w, http.StatusServiceUnavailable, "data not loaded yet")
		return false
	}
	return true
}

// GetMenu handles GET /api/menu?date=&meal=&facility=
func (h *QueryHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	q := r.URL.Query()
	now := h.now()
	date := h.engine.ParseDate(q.Get("date"), now)
	meal := services.ParseMeal(q.Get("meal"))

	respondWithJSON(w, http.StatusOK, h.engine.MenuView(date, meal, h.engine.FacilityFilter(q.Get("facility")), now))
}

// GetOccurrences handles GET /api/dishes/occurrences?name=
func (h *QueryHandler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := h.now()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"dish":        entities.DishKey(name),
		"occurrences": h.engine.FindOccurrences(name, now),
		"view":        h.engine.OccurrenceView(name, now),
	})
}

// SearchDishes handles GET /api/dishes/search?q=
func (h *QueryHandler) SearchDishes(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	results := h.engine.SearchDishes(term, h.now())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// InlineQuery handles GET /api/inline?q=
func (h *QueryHandler) InlineQuery(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	results := h.engine.InlineQuery(r.URL.Query().Get("q"), h.now())
	if results == nil {
		results = []entities.InlineResult{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// ListFacilities handles GET /api/facilities
func (h *QueryHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	facilities := h.engine.Facilities()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"facilities": facilities,
		"count":      len(facilities),
		"view":       h.engine.FacilityPicker(),
	})
}

// GetFacility handles GET /api/facilities/{id}
func (h *QueryHandler) GetFacility(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	f, ok := h.engine.ResolveFacility(r.PathValue("id"))
	if !ok {
		respondWithError(w, http.StatusNotFound, "facility not found")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"facility": f,
		"view":     h.engine.FacilityInfo(f.ID, h.now()),
	})
}

// GetSchedule handles GET /api/facilities/{id}/schedule?date=&meal=. The id
// "all" lists every facility.
func (h *QueryHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	target := h.engine.FacilityFilter(r.PathValue("id"))
	if target != services.FilterAll {
		if _, ok := h.engine.Facility(target); !ok {
			respondWithError(w, http.StatusNotFound, "facility not found")
			return
		}
	}

	q := r.URL.Query()
	now := h.now()
	date := h.engine.ParseDate(q.Get("date"), now)
	respondWithJSON(w, http.StatusOK, h.engine.ScheduleView(date, services.ParseMeal(q.Get("meal")), target, now))
}

// GetRates handles GET /api/rates?income=. Without income it lists the bands.
func (h *QueryHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	income := r.URL.Query().Get("income")
	if strings.TrimSpace(income) == "" {
		bands := h.engine.Snapshot().Rates.Bands()
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"bands": bands,
			"count": len(bands),
		})
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.RateView(income, h.now()))
}

// ActionRequest is the body of POST /api/actions
type ActionRequest struct {
	Token string `json:"token"`
}

// HandleAction handles POST /api/actions. A token that does not decode is a
// no-op answered with 204.
func (h *QueryHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Token) > navigation.MaxTokenBytes {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	payload, ok := h.navigator.Handle(req.Token, h.now())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusOK, payload)
}
