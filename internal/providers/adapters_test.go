package providers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/internal/proration"
	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

func baseCheckoutRequest(method enums.PaymentMethod) CheckoutRequest {
	return CheckoutRequest{
		TransactionID: uuid.New(),
		AgencyID:      uuid.New(),
		PlanID:        uuid.New(),
		PlanName:      "Premium",
		BillingCycle:  enums.BillingCycleMonthly,
		Method:        method,
		Amount:        5000,
		Currency:      enums.CurrencyXOF,
		CustomerName:  "Awa Traoré",
		CustomerEmail: "awa@agence.ci",
		CustomerPhone: "+2250701020304",
		ReturnURL:     "https://app.immoflow.test/billing/return",
	}
}

func TestFedapayBuildPayload(t *testing.T) {
	adapter := &FedapayAdapter{cfg: config.FedapayConfig{SecretKey: "sk"}}

	req := baseCheckoutRequest(enums.PaymentMethodOrangeMoney)
	req.Proration = &proration.Result{
		RemainingDays:      15,
		TotalDays:          30,
		CurrentPlanCredit:  5000,
		NewPlanProrataCost: 10000,
		AmountDue:          5000,
	}

	raw, err := adapter.BuildPayload(req)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	payload, ok := raw.(fedapayTransactionPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", raw)
	}
	if payload.Amount != 5000 {
		t.Errorf("amount = %d, want 5000", payload.Amount)
	}
	if payload.Currency["iso"] != "XOF" {
		t.Errorf("currency = %q, want XOF", payload.Currency["iso"])
	}
	if payload.CallbackURL != req.ReturnURL {
		t.Errorf("callback url = %q, want %q", payload.CallbackURL, req.ReturnURL)
	}
	if payload.Mode != "orange_ci" {
		t.Errorf("mode = %q, want orange_ci", payload.Mode)
	}
	if payload.Proration == nil || payload.Proration.AmountDue != 5000 {
		t.Errorf("proration block not forwarded: %+v", payload.Proration)
	}
}

func TestFedapayBuildPayloadWithoutProration(t *testing.T) {
	adapter := &FedapayAdapter{cfg: config.FedapayConfig{SecretKey: "sk"}}

	raw, err := adapter.BuildPayload(baseCheckoutRequest(enums.PaymentMethodCard))
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if raw.(fedapayTransactionPayload).Proration != nil {
		t.Error("expected no proration block on a full-price checkout")
	}
}

func TestFedapayRequiresReturnURL(t *testing.T) {
	adapter := &FedapayAdapter{cfg: config.FedapayConfig{SecretKey: "sk"}}
	req := baseCheckoutRequest(enums.PaymentMethodCard)
	req.ReturnURL = " "

	if _, err := adapter.BuildPayload(req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFedapayInterpret(t *testing.T) {
	adapter := &FedapayAdapter{}

	outcome, err := adapter.Interpret(&Response{Success: true, PaymentURL: "https://pay.fedapay.test/t/abc", Reference: "trx_1"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if outcome.Kind != enums.CheckoutOutcomeRedirect {
		t.Errorf("kind = %s, want redirect", outcome.Kind)
	}
	if outcome.RedirectURL != "https://pay.fedapay.test/t/abc" {
		t.Errorf("redirect url = %q", outcome.RedirectURL)
	}

	if _, err := adapter.Interpret(&Response{Success: true}); !pkgerrors.HasCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error for missing payment url, got %v", err)
	}
	if _, err := adapter.Interpret(&Response{Success: false}); !pkgerrors.HasCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error for rejected checkout, got %v", err)
	}
}

func TestWaveBuildPayload(t *testing.T) {
	adapter := &WaveAdapter{cfg: config.WaveCIConfig{APIKey: "k"}}

	raw, err := adapter.BuildPayload(baseCheckoutRequest(enums.PaymentMethodWaveDirect))
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	payload := raw.(waveCheckoutPayload)
	if payload.CustomerPhone != "+2250701020304" {
		t.Errorf("customer phone = %q", payload.CustomerPhone)
	}
	if payload.SuccessURL == "" || payload.ErrorURL == "" {
		t.Error("expected both return urls set")
	}
}

func TestWaveRequiresPhone(t *testing.T) {
	adapter := &WaveAdapter{}
	req := baseCheckoutRequest(enums.PaymentMethodWaveDirect)
	req.CustomerPhone = ""

	if _, err := adapter.BuildPayload(req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWaveInterpretRedirects(t *testing.T) {
	adapter := &WaveAdapter{}

	outcome, err := adapter.Interpret(&Response{Success: true, PaymentURL: "https://pay.wave.test/s/xyz", Reference: "cos-1"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if outcome.Kind != enums.CheckoutOutcomeRedirect {
		t.Errorf("kind = %s, want redirect", outcome.Kind)
	}
}

func TestPawapayBuildPayloadNormalizesWallet(t *testing.T) {
	adapter := &PawapayAdapter{cfg: config.PawapayConfig{APIToken: "t", CountryCode: "CIV"}}

	cases := []struct {
		method enums.PaymentMethod
		want   string
	}{
		{enums.PaymentMethodPawapayMTN, "mtn_money"},
		{enums.PaymentMethodPawapayOrange, "orange_money"},
	}
	for _, tc := range cases {
		t.Run(tc.method.String(), func(t *testing.T) {
			raw, err := adapter.BuildPayload(baseCheckoutRequest(tc.method))
			if err != nil {
				t.Fatalf("BuildPayload: %v", err)
			}
			payload := raw.(pawapayDepositPayload)
			if payload.Correspondent != tc.want {
				t.Errorf("correspondent = %q, want %q", payload.Correspondent, tc.want)
			}
			if payload.CountryCode != "CIV" {
				t.Errorf("country code = %q, want CIV", payload.CountryCode)
			}
			if payload.Amount != "5000" {
				t.Errorf("amount = %q, want 5000", payload.Amount)
			}
		})
	}
}

func TestPawapayRejectsForeignMethod(t *testing.T) {
	adapter := &PawapayAdapter{cfg: config.PawapayConfig{CountryCode: "CIV"}}

	if _, err := adapter.BuildPayload(baseCheckoutRequest(enums.PaymentMethodCard)); !pkgerrors.HasCode(err, pkgerrors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPawapayInterpretIsPushPending(t *testing.T) {
	adapter := &PawapayAdapter{}

	outcome, err := adapter.Interpret(&Response{Success: true, Reference: "dep-42"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if outcome.Kind != enums.CheckoutOutcomePushPending {
		t.Errorf("kind = %s, want push_pending", outcome.Kind)
	}
	if outcome.Reference != "dep-42" {
		t.Errorf("reference = %q", outcome.Reference)
	}

	if _, err := adapter.Interpret(&Response{Success: true}); !pkgerrors.HasCode(err, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error for missing reference, got %v", err)
	}
}

func TestKkiapayBuildPayload(t *testing.T) {
	adapter := &KkiapayAdapter{cfg: config.KkiapayConfig{PublicKey: "pk", Sandbox: true}}

	raw, err := adapter.BuildPayload(baseCheckoutRequest(enums.PaymentMethodKkiapay))
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	payload := raw.(kkiapayWidgetPayload)
	if payload.Key != "pk" {
		t.Errorf("key = %q, want pk", payload.Key)
	}
	if !payload.Sandbox {
		t.Error("expected sandbox flag forwarded")
	}
	if payload.Name != "Awa Traoré" || payload.Phone != "+2250701020304" {
		t.Errorf("customer identity not forwarded: %+v", payload)
	}
}

func TestKkiapayInterpret(t *testing.T) {
	adapter := &KkiapayAdapter{}

	outcome, err := adapter.Interpret(&Response{Success: true, PaymentURL: "https://widget.kkiapay.test/w/1", Reference: "kk-1"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if outcome.Kind != enums.CheckoutOutcomeRedirect {
		t.Errorf("kind = %s, want redirect", outcome.Kind)
	}

	outcome, err = adapter.Interpret(&Response{Success: true, Reference: "kk-2"})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if outcome.Kind != enums.CheckoutOutcomePushPending {
		t.Errorf("kind = %s, want push_pending", outcome.Kind)
	}
}
