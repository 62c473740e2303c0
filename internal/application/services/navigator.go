package services

import (
	"time"

	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
)

// Navigator turns an action token into the next view. Every action offered
// by a view is handled here, so a conversation needs no server-side state.
type Navigator struct {
	engine *QueryEngine
}

// NewNavigator creates a navigator over the engine
func NewNavigator(engine *QueryEngine) *Navigator {
	return &Navigator{engine: engine}
}

// Handle decodes token and renders the view it points to. A token that
// does not decode is a no-op and reports false.
func (n *Navigator) Handle(token string, now time.Time) (entities.RenderPayload, bool) {
	tok, ok := navigation.Decode(token)
	if !ok {
		return entities.RenderPayload{}, false
	}
	return n.Dispatch(tok, now), true
}

// Dispatch renders the view for an already decoded token
func (n *Navigator) Dispatch(tok navigation.Token, now time.Time) entities.RenderPayload {
	e := n.engine
	switch tok.Action {
	case navigation.ActionNav:
		date := e.ParseDate(tok.Field(0), now)
		return e.MenuView(date, ParseMeal(tok.Field(1)), tok.Field(2), now)

	case navigation.ActionToggle:
		date := e.ParseDate(tok.Field(0), now)
		return e.MenuView(date, ParseMeal(tok.Field(1)).Other(), tok.Field(2), now)

	case navigation.ActionSelectFacility:
		switch target := tok.Field(0); target {
		case navigation.FacilityReset:
			return e.FacilityPicker()
		default:
			return e.MenuView(e.Today(now), entities.MealLunch, target, now)
		}

	case navigation.ActionRefreshDish:
		return e.OccurrenceView(tok.Field(0), now)

	case navigation.ActionFacilityInfo:
		return e.FacilityInfo(tok.Field(0), now)

	case navigation.ActionSchedule:
		date := e.ParseDate(tok.Field(0), now)
		return e.ScheduleView(date, ParseMeal(tok.Field(1)), tok.Field(2), now)

	case navigation.ActionShowFirstBand:
		return e.FirstBandPreview()

	case navigation.ActionBackToScholarship:
		return e.ScholarshipView(now)
	}
	return entities.RenderPayload{}
}
