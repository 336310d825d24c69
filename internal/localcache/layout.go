package localcache

// Card is one tile of the dashboard layout.
type Card struct {
	ID      string `json:"id" validate:"required"`
	Visible bool   `json:"visible"`
}

// Layout is the ordered list of dashboard cards.
type Layout struct {
	Cards []Card `json:"cards" validate:"dive"`
}

// DefaultLayout lists every dashboard card, visible, in default order.
func DefaultLayout() Layout {
	return Layout{Cards: []Card{
		{ID: "status-summary", Visible: true},
		{ID: "attention", Visible: true},
		{ID: "division-chart", Visible: true},
		{ID: "brand-chart", Visible: true},
		{ID: "calibrator-chart", Visible: true},
		{ID: "interval-chart", Visible: true},
		{ID: "upcoming-events", Visible: true},
	}}
}
