package dto

type CartItemRequest struct {
	CourtID   uint    `json:"court_id" binding:"required"`
	Date      string  `json:"date" binding:"required,isodate"`
	StartTime string  `json:"start_time" binding:"required,hhmm"`
	EndTime   string  `json:"end_time" binding:"required,hhmm"`
	Price     float64 `json:"price" binding:"gte=0"`
}

type AddCartItemsRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,max=20,dive"`
	// Staff may add items on behalf of a user.
	UserID *uint `json:"user_id"`
}

type PaymentRequest struct {
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=transfer pix cash card"`
	ProofRef      string `json:"proof_ref" binding:"max=255"`
}

type ProofRequest struct {
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=transfer pix cash card"`
	ProofRef      string `json:"proof_ref" binding:"required,max=255"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}
