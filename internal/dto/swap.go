package dto

// CreateSwapRequest is the payload for opening a new swap request.
type CreateSwapRequest struct {
	SlotID       string `json:"slot_id" validate:"required"`
	SubstituteID string `json:"substitute_id" validate:"required"`
	ClassDate    string `json:"class_date" validate:"required"` // YYYY-MM-DD
	Reason       string `json:"reason" validate:"required"`
}

// RegisterMakeUpRequest is the payload for registering the make-up session.
type RegisterMakeUpRequest struct {
	Date string `json:"date" validate:"required"` // YYYY-MM-DD
	Note string `json:"note"`
}

// SwapQuery constrains swap listing requests.
type SwapQuery struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

// SwapActionResult reports the outcome of confirm/cancel operations.
// Changed is false when the call was an informational no-op (already
// approved / already cancelled).
type SwapActionResult struct {
	Changed bool   `json:"changed"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
