package providers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/proration"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// CheckoutRequest is the provider-neutral input every adapter builds its own
// payload from.
type CheckoutRequest struct {
	TransactionID uuid.UUID
	AgencyID      uuid.UUID
	PlanID        uuid.UUID
	PlanName      string
	BillingCycle  enums.BillingCycle
	Method        enums.PaymentMethod
	Amount        int64
	Currency      enums.Currency
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ReturnURL     string
	// Proration is forwarded to aggregator-hosted pages for display only.
	// The authoritative amount is always Amount, recomputed server-side.
	Proration *proration.Result
}

// Response is the normalized shape of a provider's checkout-creation reply.
// The transport collaborator fills it from whatever the provider returned.
type Response struct {
	Success    bool
	PaymentURL string
	Reference  string
	Raw        json.RawMessage
}

// Outcome tells the caller how to continue after a dispatch.
type Outcome struct {
	Kind        enums.CheckoutOutcome
	RedirectURL string
	Reference   string
}

// Adapter translates the neutral checkout request into one provider's
// API contract and interprets that provider's reply.
type Adapter interface {
	Provider() enums.PaymentProvider
	BuildPayload(req CheckoutRequest) (any, error)
	Interpret(resp *Response) (Outcome, error)
}

// Dispatcher performs the remote checkout-creation call. The HTTP transport
// lives outside this core; implementations must honor ctx deadlines and
// return an error on any non-2xx or malformed reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, provider enums.PaymentProvider, payload any) (*Response, error)
}

// ProviderFor maps a payment method to the single provider that serves it.
// The mapping is closed: an unknown method is a configuration problem and is
// never silently routed elsewhere.
func ProviderFor(method enums.PaymentMethod) (enums.PaymentProvider, error) {
	switch method {
	case enums.PaymentMethodCard,
		enums.PaymentMethodOrangeMoney,
		enums.PaymentMethodMTNMoney,
		enums.PaymentMethodWave,
		enums.PaymentMethodMoov:
		return enums.PaymentProviderFedapay, nil
	case enums.PaymentMethodWaveDirect:
		return enums.PaymentProviderWaveCI, nil
	case enums.PaymentMethodPawapayMTN, enums.PaymentMethodPawapayOrange:
		return enums.PaymentProviderPawapay, nil
	case enums.PaymentMethodKkiapay:
		return enums.PaymentProviderKkiapay, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "no provider mapped for payment method").
			WithDetails(map[string]any{"payment_method": method.String()})
	}
}
