package providers

import (
	"strings"

	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// KkiapayAdapter prepares widget checkouts. The widget runs client-side
// against the public key, so the payload carries customer identity and
// no return URL; the dashboard owns the post-payment navigation.
type KkiapayAdapter struct {
	cfg config.KkiapayConfig
}

type kkiapayWidgetPayload struct {
	Amount   int64  `json:"amount"`
	Key      string `json:"key"`
	Sandbox  bool   `json:"sandbox"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone"`
	Currency string `json:"currency"`
}

func (a *KkiapayAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderKkiapay
}

func (a *KkiapayAdapter) BuildPayload(req CheckoutRequest) (any, error) {
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required for widget checkouts")
	}
	return kkiapayWidgetPayload{
		Amount:   req.Amount,
		Key:      a.cfg.PublicKey,
		Sandbox:  a.cfg.Sandbox,
		Name:     req.CustomerName,
		Email:    req.CustomerEmail,
		Phone:    req.CustomerPhone,
		Currency: req.Currency.String(),
	}, nil
}

func (a *KkiapayAdapter) Interpret(resp *Response) (Outcome, error) {
	if resp == nil || !resp.Success {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "kkiapay widget initialization failed")
	}
	if strings.TrimSpace(resp.PaymentURL) != "" {
		return Outcome{
			Kind:        enums.CheckoutOutcomeRedirect,
			RedirectURL: resp.PaymentURL,
			Reference:   resp.Reference,
		}, nil
	}
	if strings.TrimSpace(resp.Reference) == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "kkiapay response missing reference")
	}
	return Outcome{
		Kind:      enums.CheckoutOutcomePushPending,
		Reference: resp.Reference,
	}, nil
}
