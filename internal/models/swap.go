package models

import "time"

// SwapStatus captures the lifecycle states of a swap request.
type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusApproved SwapStatus = "APPROVED"
	// SwapStatusRefused is declared for schema parity with the legacy
	// system but no operation currently transitions into it.
	SwapStatusRefused   SwapStatus = "REFUSED"
	SwapStatusCancelled SwapStatus = "CANCELLED"
)

// SwapRequest is the central aggregate: a professor's request to have a
// substitute cover one occurrence of a schedule slot, contingent on a
// make-up session being registered before the substitute confirms.
type SwapRequest struct {
	ID           string     `db:"id" json:"id"`
	RequesterID  string     `db:"requester_id" json:"requester_id"`
	SubstituteID string     `db:"substitute_id" json:"substitute_id"`
	SlotID       string     `db:"slot_id" json:"slot_id"`
	ClassDate    time.Time  `db:"class_date" json:"class_date"`
	Reason       string     `db:"reason" json:"reason"`
	Status       SwapStatus `db:"status" json:"status"`
	RequestedAt  time.Time  `db:"requested_at" json:"requested_at"`
	DecidedAt    *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy    *string    `db:"decided_by" json:"decided_by,omitempty"`

	// Joined for display.
	RequesterName  string  `db:"requester_name" json:"requester_name,omitempty"`
	SubstituteName string  `db:"substitute_name" json:"substitute_name,omitempty"`
	DisciplineName string  `db:"discipline_name" json:"discipline_name,omitempty"`
	ClassCode      string  `db:"class_code" json:"class_code,omitempty"`
	SlotWeekday    Weekday `db:"slot_weekday" json:"slot_weekday,omitempty"`
	SlotStartTime  string  `db:"slot_start_time" json:"slot_start_time,omitempty"`
	SlotEndTime    string  `db:"slot_end_time" json:"slot_end_time,omitempty"`

	// MakeUp is the zero-or-one make-up session registered for this
	// request, hydrated by the repository.
	MakeUp *MakeUpSession `db:"-" json:"make_up,omitempty"`
}

// HasMakeUp reports whether a make-up session is attached.
func (s *SwapRequest) HasMakeUp() bool {
	return s != nil && s.MakeUp != nil
}

// MakeUpSession is the rescheduled session compensating for the swapped
// occurrence. At most one exists per swap request.
type MakeUpSession struct {
	ID            string    `db:"id" json:"id"`
	SwapRequestID string    `db:"swap_request_id" json:"swap_request_id"`
	Date          time.Time `db:"date" json:"date"`
	Note          string    `db:"note" json:"note"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SwapFilter constrains swap request listing queries.
type SwapFilter struct {
	Status              []SwapStatus
	RequesterID         string
	SubstituteID        string
	InvolvedProfessorID string // requester OR substitute
	From                *time.Time
	To                  *time.Time
	// ClassDateFrom/ClassDateTo select swaps whose affected class date, or
	// whose make-up date, falls in [from, to). Both must be set together.
	ClassDateFrom *time.Time
	ClassDateTo   *time.Time
	Limit         int
	Offset        int
}
