package entities

// Action is one interactive control: a label and the navigation token the
// transport sends back when it is pressed.
type Action struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// RenderPayload is what every query returns to the transport layer. Body
// uses *bold*, ```monospace``` blocks and [text](url) links.
type RenderPayload struct {
	Body    string     `json:"body"`
	Actions [][]Action `json:"actions,omitempty"`
}

// InlineResult is one entry of an inline-query answer
type InlineResult struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DaysAhead   int           `json:"days_ahead"`
	Payload     RenderPayload `json:"payload"`
}
