package models

// PaymentIntentResponse exposes the fields a client needs to confirm a
// Stripe payment for a pending session.
type PaymentIntentResponse struct {
	IntentID     string  `json:"intentId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	SessionID    string  `json:"sessionId"`
}
