package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cibounipi/mensabot/internal/api/handlers"
	"github.com/cibounipi/mensabot/internal/api/routes"
	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/store"
	apperrors "github.com/cibounipi/mensabot/pkg/errors"
)

var testDocs = store.Documents{
	Menu: []byte(`{
	  "2025-03-10": {
	    "Pranzo": {"Primi Piatti": [{"name": "Risotto", "available_at": ["a"]}, {"name": "Lasagne", "available_at": ["a", "b"]}]},
	    "Cena": {"Primi Piatti": ["Minestrone"]}
	  },
	  "2025-03-12": {"Pranzo": {"Primi Piatti": [{"name": "Risotto", "available_at": ["b"]}]}}
	}`),
	Facilities: []byte(`[
	  {"id": "a", "name": "Mensa Centrale", "opening_hours": {"Mensa": "Lun-Ven: 12:00-14:30"}},
	  {"id": "b", "name": "Mensa Martiri"}
	]`),
	Rates: []byte(`[
	  {"min_isee": 0, "max_isee": 0, "scholarship": true, "pasto_completo": 0, "pasto_ridotto_a": 0, "pasto_ridotto_b": 0, "pasto_ridotto_c": 0},
	  {"min_isee": 0, "max_isee": 27000, "pasto_completo": 2.8, "pasto_ridotto_a": 2.3, "pasto_ridotto_b": 2.3, "pasto_ridotto_c": 1.8},
	  {"min_isee": 27000, "max_isee": null, "pasto_completo": 4, "pasto_ridotto_a": 3.5, "pasto_ridotto_b": 3.5, "pasto_ridotto_c": 3}
	]`),
}

var testNow = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, holder *store.Holder, reloader handlers.Reloader) (*services.QueryEngine, http.Handler) {
	t.Helper()
	engine := services.NewQueryEngine(holder, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	queryHandler := handlers.NewQueryHandler(engine, services.NewNavigator(engine)).
		WithClock(func() time.Time { return testNow })

	var adminHandler *handlers.AdminHandler
	if reloader != nil {
		adminHandler = handlers.NewAdminHandler(reloader)
	}
	router := routes.NewRouter(queryHandler, adminHandler, nil, nil)
	return engine, router.SetupRoutes()
}

func loadedHolder(t *testing.T) *store.Holder {
	t.Helper()
	snap, err := store.Build(testDocs, time.UTC)
	require.NoError(t, err)
	return store.NewHolder(snap)
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodePayload(t *testing.T, w *httptest.ResponseRecorder) entities.RenderPayload {
	t.Helper()
	var payload entities.RenderPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestGetMenu(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/menu?date=2025-03-10&meal=pranzo&facility=all", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	want := engine.MenuView(testNow, entities.MealLunch, services.FilterAll, testNow)
	assert.Equal(t, want, decodePayload(t, w))
	assert.Contains(t, want.Body, "- Risotto (solo a: Centrale)")
}

func TestGetMenu_FacilityByName(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/menu?facility=Martiri", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.MenuView(testNow, entities.MealLunch, "b", testNow), decodePayload(t, w))
}

func TestGetMenu_DefaultsToTodayLunch(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/menu?date=domani&meal=merenda", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.MenuView(testNow, entities.MealLunch, services.FilterNone, testNow), decodePayload(t, w))
}

func TestGetOccurrences(t *testing.T) {
	_, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/dishes/occurrences?name=risotto", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Dish        string                 `json:"dish"`
		Occurrences []services.Occurrence  `json:"occurrences"`
		View        entities.RenderPayload `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RISOTTO", resp.Dish)
	assert.Len(t, resp.Occurrences, 2)
	assert.Equal(t, "upd|RISOTTO", resp.View.Actions[0][0].Token)

	w = doRequest(h, http.MethodGet, "/api/dishes/occurrences", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchDishes(t *testing.T) {
	_, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/dishes/search?q=sagn", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []services.DishSummary `json:"results"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "LASAGNE", resp.Results[0].Name)

	w = doRequest(h, http.MethodGet, "/api/dishes/search?q=", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInlineQuery(t *testing.T) {
	_, h := newTestServer(t, loadedHolder(t), nil)

	var resp struct {
		Results []entities.InlineResult `json:"results"`
		Count   int                     `json:"count"`
	}

	w := doRequest(h, http.MethodGet, "/api/inline?q=p:risotto", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	w = doRequest(h, http.MethodGet, "/api/inline?q=risotto", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results": [], "count": 0}`, w.Body.String())
}

func TestFacilities(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/facilities", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = doRequest(h, http.MethodGet, "/api/facilities/centrale", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Facility entities.Facility      `json:"facility"`
		View     entities.RenderPayload `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a", resp.Facility.ID)
	assert.Equal(t, engine.FacilityInfo("a", testNow), resp.View)
	assert.Contains(t, resp.View.Body, "Mensa: APERTA fino alle 14:30")

	w = doRequest(h, http.MethodGet, "/api/facilities/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSchedule(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/facilities/a/schedule?date=2025-03-11", "")
	require.Equal(t, http.StatusOK, w.Code)
	want := engine.ScheduleView(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), entities.MealLunch, "a", testNow)
	assert.Equal(t, want, decodePayload(t, w))

	w = doRequest(h, http.MethodGet, "/api/facilities/all/schedule", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodePayload(t, w).Body, "*Mensa Martiri*")

	w = doRequest(h, http.MethodGet, "/api/facilities/zzz/schedule", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRates(t *testing.T) {
	_, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodGet, "/api/rates?income=18500,50", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(decodePayload(t, w).Body, "*TARIFFA: ≤ € 27.000*"))

	w = doRequest(h, http.MethodGet, "/api/rates?income=boh", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decodePayload(t, w).Body, "Valore non valido")

	w = doRequest(h, http.MethodGet, "/api/rates", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)
}

func TestHandleAction(t *testing.T) {
	engine, h := newTestServer(t, loadedHolder(t), nil)

	w := doRequest(h, http.MethodPost, "/api/actions", `{"token": "tgl|2025-03-10|Pranzo|a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.MenuView(testNow, entities.MealDinner, "a", testNow), decodePayload(t, w))

	w = doRequest(h, http.MethodPost, "/api/actions", `{"token": "boom|1"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(h, http.MethodPost, "/api/actions", `{"token": "upd|`+strings.Repeat("X", 100)+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(h, http.MethodPost, "/api/actions", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(h, http.MethodGet, "/api/actions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNotLoadedYet(t *testing.T) {
	_, h := newTestServer(t, store.NewHolder(nil), nil)

	w := doRequest(h, http.MethodGet, "/api/menu", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type stubReloader struct {
	snap *store.Snapshot
	err  error
}

func (s stubReloader) Reload(context.Context, string) (*store.Snapshot, error) {
	return s.snap, s.err
}

func TestAdminReload(t *testing.T) {
	holder := loadedHolder(t)

	_, h := newTestServer(t, holder, stubReloader{snap: holder.Load()})
	w := doRequest(h, http.MethodPost, "/api/admin/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"`+holder.Load().Version+`"`)
	assert.Contains(t, w.Body.String(), `"facilities":2`)

	_, h = newTestServer(t, holder, stubReloader{err: apperrors.WrapValidationError("rates.json", errors.New("no band starts at zero income"))})
	w = doRequest(h, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	_, h = newTestServer(t, holder, stubReloader{err: apperrors.NewExternalError("s3", errors.New("timeout"))})
	w = doRequest(h, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	_, h = newTestServer(t, holder, nil)
	w = doRequest(h, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
