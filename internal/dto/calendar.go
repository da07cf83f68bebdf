package dto

// CalendarEvent is one occurrence in the schedule feed: a regular class,
// a swapped class, or a make-up session.
type CalendarEvent struct {
	Title     string `json:"title"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Kind      string `json:"kind"` // class | swap | make_up
	Status    string `json:"status,omitempty"`
	SwapID    string `json:"swap_id,omitempty"`
	Color     string `json:"color"`
}

// CalendarQuery bounds the feed window.
type CalendarQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}
