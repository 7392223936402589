package providers

import (
	"strings"

	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// WaveAdapter talks to the direct Wave CI checkout API. Wave holds its
// own session state so the payload stays minimal: amount, currency, the
// payer's phone and where to send the customer afterwards.
type WaveAdapter struct {
	cfg config.WaveCIConfig
}

type waveCheckoutPayload struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerPhone string `json:"customer_phone"`
	SuccessURL    string `json:"success_url"`
	ErrorURL      string `json:"error_url"`
}

func (a *WaveAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderWaveCI
}

func (a *WaveAdapter) BuildPayload(req CheckoutRequest) (any, error) {
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required for wave checkouts")
	}
	if strings.TrimSpace(req.ReturnURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return url is required for wave checkouts")
	}
	return waveCheckoutPayload{
		Amount:        req.Amount,
		Currency:      req.Currency.String(),
		CustomerPhone: req.CustomerPhone,
		SuccessURL:    req.ReturnURL,
		ErrorURL:      req.ReturnURL,
	}, nil
}

func (a *WaveAdapter) Interpret(resp *Response) (Outcome, error) {
	if resp == nil || !resp.Success {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "wave rejected the checkout session")
	}
	if strings.TrimSpace(resp.PaymentURL) == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "wave session missing launch url")
	}
	return Outcome{
		Kind:        enums.CheckoutOutcomeRedirect,
		RedirectURL: resp.PaymentURL,
		Reference:   resp.Reference,
	}, nil
}
