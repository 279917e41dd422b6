package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	"github.com/mattw23n/emergency-dispatch-app/pkg/logging"
)

// ChargeResult is the gateway's answer to a charge attempt. A declined
// card is Success=false with no error; errors are transport failures.
type ChargeResult struct {
	Success          bool
	PaymentReference string
	Message          string
}

// PaymentGateway abstracts the card processor so the saga can be tested
// without network calls.
type PaymentGateway interface {
	Charge(ctx context.Context, amountCents int64, description string) (ChargeResult, error)
	Refund(ctx context.Context, paymentReference string) error
}

// StripeGateway charges through Stripe PaymentIntents.
type StripeGateway struct {
	logger logging.Logger
}

// NewStripeGateway sets the global API key used by the stripe-go library.
func NewStripeGateway(secretKey string, logger logging.Logger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{logger: logger}
}

func (g *StripeGateway) Charge(ctx context.Context, amountCents int64, description string) (ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(string(stripe.CurrencySGD)),
		PaymentMethod: stripe.String("pm_card_visa"),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Type == stripe.ErrorTypeCard {
			// Declined is an expected business outcome, not a failure.
			return ChargeResult{Success: false, Message: stripeErr.Msg}, nil
		}
		return ChargeResult{}, fmt.Errorf("payment intent failed: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return ChargeResult{Success: false, Message: fmt.Sprintf("payment intent status %s", pi.Status)}, nil
	}

	g.logger.WithFields(logging.Fields{
		"payment_intent": pi.ID,
		"amount_cents":   amountCents,
	}).Info("Payment captured")
	return ChargeResult{Success: true, PaymentReference: pi.ID}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, paymentReference string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentReference),
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		return fmt.Errorf("refund of %s failed: %w", paymentReference, err)
	}

	g.logger.WithFields(logging.Fields{
		"payment_intent": paymentReference,
		"refund_id":      ref.ID,
	}).Info("Payment refunded")
	return nil
}
