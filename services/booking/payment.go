package booking

import (
	"fmt"
	"math"

	"confiido/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// PaymentProcessor creates provider-side payment objects for a pending
// session. The engine never observes provider callbacks directly; a confirmed
// intent is reported back through CompletePayment.
type PaymentProcessor interface {
	CreatePaymentIntent(s *models.Session) (*models.PaymentIntentResponse, error)
}

// StripePaymentProcessor implements PaymentProcessor against Stripe.
type StripePaymentProcessor struct {
	Logger   *zap.Logger
	Currency string
}

func NewStripePaymentProcessor(logger *zap.Logger) *StripePaymentProcessor {
	return &StripePaymentProcessor{Logger: logger, Currency: string(stripe.CurrencyUSD)}
}

// CreatePaymentIntent opens a Stripe PaymentIntent for the session's price.
// Refused for sessions that are not pending; a paid or released session has
// nothing to collect.
func (p *StripePaymentProcessor) CreatePaymentIntent(s *models.Session) (*models.PaymentIntentResponse, error) {
	if s.Status != models.SessionPending {
		return nil, NewAlreadyTerminalError(fmt.Sprintf("session %s is %s; no payment to collect", s.ID, s.Status))
	}
	if s.Price <= 0 {
		return nil, NewValidationError("session has no positive price")
	}

	amountCents := int64(math.Round(s.Price * 100))
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(p.Currency),
	}
	params.AddMetadata("session_id", s.ID)
	params.AddMetadata("booking_id", s.BookingID)
	params.AddMetadata("mentor_id", s.MentorID)

	pi, err := paymentintent.New(params)
	if err != nil {
		p.Logger.Error("stripe payment intent creation failed",
			zap.String("sessionID", s.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	p.Logger.Info("payment intent created",
		zap.String("sessionID", s.ID), zap.String("intentID", pi.ID))

	return &models.PaymentIntentResponse{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       s.Price,
		Currency:     p.Currency,
		SessionID:    s.ID,
	}, nil
}
