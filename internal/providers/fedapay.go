package providers

import (
	"strings"

	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// FedapayAdapter targets the aggregator provider hosting its own payment
// page. The proration block rides along so the hosted page can show the
// charge breakdown; the charged amount stays server-authoritative.
type FedapayAdapter struct {
	cfg config.FedapayConfig
}

type fedapayCustomer struct {
	Firstname   string `json:"firstname"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type fedapayProrationBlock struct {
	RemainingDays      int64 `json:"remaining_days"`
	CurrentPlanCredit  int64 `json:"current_plan_credit"`
	NewPlanProrataCost int64 `json:"new_plan_prorata_cost"`
	AmountDue          int64 `json:"amount_due"`
}

type fedapayTransactionPayload struct {
	Description string                 `json:"description"`
	Amount      int64                  `json:"amount"`
	Currency    map[string]string      `json:"currency"`
	CallbackURL string                 `json:"callback_url"`
	Customer    fedapayCustomer        `json:"customer"`
	Mode        string                 `json:"mode"`
	Proration   *fedapayProrationBlock `json:"proration,omitempty"`
}

func (a *FedapayAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderFedapay
}

func (a *FedapayAdapter) BuildPayload(req CheckoutRequest) (any, error) {
	if strings.TrimSpace(req.ReturnURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return url is required for fedapay checkouts")
	}

	payload := fedapayTransactionPayload{
		Description: req.PlanName + " (" + req.BillingCycle.String() + ")",
		Amount:      req.Amount,
		Currency:    map[string]string{"iso": req.Currency.String()},
		CallbackURL: req.ReturnURL,
		Customer: fedapayCustomer{
			Firstname:   req.CustomerName,
			Email:       req.CustomerEmail,
			PhoneNumber: req.CustomerPhone,
		},
		Mode: fedapayMode(req.Method),
	}
	if req.Proration != nil {
		payload.Proration = &fedapayProrationBlock{
			RemainingDays:      req.Proration.RemainingDays,
			CurrentPlanCredit:  req.Proration.CurrentPlanCredit,
			NewPlanProrataCost: req.Proration.NewPlanProrataCost,
			AmountDue:          req.Proration.AmountDue,
		}
	}
	return payload, nil
}

// Interpret expects a hosted payment URL; the aggregator never settles
// synchronously.
func (a *FedapayAdapter) Interpret(resp *Response) (Outcome, error) {
	if resp == nil || !resp.Success {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "fedapay rejected the checkout")
	}
	if strings.TrimSpace(resp.PaymentURL) == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "fedapay response missing payment url")
	}
	return Outcome{
		Kind:        enums.CheckoutOutcomeRedirect,
		RedirectURL: resp.PaymentURL,
		Reference:   resp.Reference,
	}, nil
}

// fedapayMode maps our method names onto the aggregator's mode vocabulary.
func fedapayMode(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodCard:
		return "card"
	case enums.PaymentMethodOrangeMoney:
		return "orange_ci"
	case enums.PaymentMethodMTNMoney:
		return "mtn_ci"
	case enums.PaymentMethodWave:
		return "wave_ci"
	case enums.PaymentMethodMoov:
		return "moov_ci"
	default:
		return method.String()
	}
}
