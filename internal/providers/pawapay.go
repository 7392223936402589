package providers

import (
	"strconv"
	"strings"

	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// PawapayAdapter triggers USSD push payments. There is no hosted page:
// the provider pings the payer's handset and confirmation arrives later
// on the webhook, so a successful dispatch maps to a pending outcome.
type PawapayAdapter struct {
	cfg config.PawapayConfig
}

type pawapayDepositPayload struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Correspondent string `json:"correspondent"`
	CountryCode   string `json:"country_code"`
	PayerPhone    string `json:"payer_phone"`
	StatementDesc string `json:"statement_description"`
}

func (a *PawapayAdapter) Provider() enums.PaymentProvider {
	return enums.PaymentProviderPawapay
}

func (a *PawapayAdapter) BuildPayload(req CheckoutRequest) (any, error) {
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required for push payments")
	}
	correspondent, err := pawapayCorrespondent(req.Method)
	if err != nil {
		return nil, err
	}
	return pawapayDepositPayload{
		Amount:        strconv.FormatInt(req.Amount, 10),
		Currency:      req.Currency.String(),
		Correspondent: correspondent,
		CountryCode:   a.cfg.CountryCode,
		PayerPhone:    req.CustomerPhone,
		StatementDesc: req.PlanName,
	}, nil
}

// Interpret never yields a redirect. Acceptance means the push was sent;
// settlement is webhook-driven.
func (a *PawapayAdapter) Interpret(resp *Response) (Outcome, error) {
	if resp == nil || !resp.Success {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "pawapay refused the deposit request")
	}
	if strings.TrimSpace(resp.Reference) == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeProvider, "pawapay response missing deposit reference")
	}
	return Outcome{
		Kind:      enums.CheckoutOutcomePushPending,
		Reference: resp.Reference,
	}, nil
}

// pawapayCorrespondent strips the provider prefix off the method name:
// the wallet network is what the API wants, not our routing alias.
func pawapayCorrespondent(method enums.PaymentMethod) (string, error) {
	switch method {
	case enums.PaymentMethodPawapayMTN:
		return "mtn_money", nil
	case enums.PaymentMethodPawapayOrange:
		return "orange_money", nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "payment method "+method.String()+" is not a pawapay wallet")
	}
}
