package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kbrayane/immoflow-backend/api/responses"
	paymentswebhook "github.com/kbrayane/immoflow-backend/internal/webhooks/payments"
	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
	"github.com/kbrayane/immoflow-backend/pkg/logger"
)

// PaymentsWebhookService applies normalized provider callbacks to the ledger.
type PaymentsWebhookService interface {
	HandleEvent(ctx context.Context, event *paymentswebhook.ProviderEvent) error
}

const signatureHeader = "X-Webhook-Signature"

// fedapayCallback is the subset of Fedapay's event body the ledger needs.
// The transaction id travels in custom metadata set at checkout creation.
type fedapayCallback struct {
	Name   string `json:"name"`
	Entity struct {
		Reference      string `json:"reference"`
		Status         string `json:"status"`
		ApprovedAt     string `json:"approved_at"`
		LastErrorCode  string `json:"last_error_code"`
		CustomMetadata struct {
			TransactionID string `json:"transaction_id"`
		} `json:"custom_metadata"`
	} `json:"entity"`
}

type waveCallback struct {
	Type string `json:"type"`
	Data struct {
		ID              string `json:"id"`
		ClientReference string `json:"client_reference"`
		PaymentStatus   string `json:"payment_status"`
		LastPaymentErr  string `json:"last_payment_error"`
		When            string `json:"when"`
	} `json:"data"`
}

type pawapayCallback struct {
	DepositID             string `json:"depositId"`
	Status                string `json:"status"`
	ProviderTransactionID string `json:"providerTransactionId"`
	FailureReason         string `json:"failureReason"`
	CustomerTimestamp     string `json:"customerTimestamp"`
}

type kkiapayCallback struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	StateData     string `json:"stateData"`
	FailureReason string `json:"failureReason"`
	PerformedAt   string `json:"performedAt"`
	Metadata      struct {
		TransactionID string `json:"transaction_id"`
	} `json:"metadata"`
}

// PaymentsWebhook normalizes one provider's callback delivery and hands it to
// the webhook service. The provider segment of the URL picks the parser and
// the signing secret; deliveries always get a 2xx on success so providers
// stop retrying.
func PaymentsWebhook(svc PaymentsWebhookService, providers config.ProvidersConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		provider, err := enums.ParsePaymentProvider(strings.TrimSpace(chi.URLParam(r, "provider")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown provider"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if secret := signingSecretFor(provider, providers); secret != "" {
			if !validateSignature(payload, secret, r.Header.Get(signatureHeader)) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
				return
			}
		}

		event, err := parseProviderEvent(provider, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func parseProviderEvent(provider enums.PaymentProvider, payload []byte) (*paymentswebhook.ProviderEvent, error) {
	event := &paymentswebhook.ProviderEvent{
		Provider: provider,
		Raw:      json.RawMessage(payload),
	}

	switch provider {
	case enums.PaymentProviderFedapay:
		var body fedapayCallback
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode fedapay callback")
		}
		txnID, err := parseTransactionID(body.Entity.CustomMetadata.TransactionID)
		if err != nil {
			return nil, err
		}
		event.TransactionID = txnID
		event.ExternalReference = body.Entity.Reference
		event.Status = body.Entity.Status
		event.FailureReason = body.Entity.LastErrorCode
		event.OccurredAt = parseTimestamp(body.Entity.ApprovedAt)

	case enums.PaymentProviderWaveCI:
		var body waveCallback
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode wave callback")
		}
		txnID, err := parseTransactionID(body.Data.ClientReference)
		if err != nil {
			return nil, err
		}
		event.TransactionID = txnID
		event.ExternalReference = body.Data.ID
		event.Status = body.Data.PaymentStatus
		event.FailureReason = body.Data.LastPaymentErr
		event.OccurredAt = parseTimestamp(body.Data.When)

	case enums.PaymentProviderPawapay:
		var body pawapayCallback
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode pawapay callback")
		}
		txnID, err := parseTransactionID(body.DepositID)
		if err != nil {
			return nil, err
		}
		event.TransactionID = txnID
		event.ExternalReference = body.ProviderTransactionID
		event.Status = body.Status
		event.FailureReason = body.FailureReason
		event.OccurredAt = parseTimestamp(body.CustomerTimestamp)

	case enums.PaymentProviderKkiapay:
		var body kkiapayCallback
		if err := json.Unmarshal(payload, &body); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode kkiapay callback")
		}
		txnID, err := parseTransactionID(body.Metadata.TransactionID)
		if err != nil {
			return nil, err
		}
		event.TransactionID = txnID
		event.ExternalReference = body.TransactionID
		event.Status = body.Status
		event.FailureReason = body.FailureReason
		event.OccurredAt = parseTimestamp(body.PerformedAt)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider")
	}

	return event, nil
}

func signingSecretFor(provider enums.PaymentProvider, cfg config.ProvidersConfig) string {
	switch provider {
	case enums.PaymentProviderFedapay:
		return cfg.Fedapay.SecretKey
	case enums.PaymentProviderWaveCI:
		return cfg.WaveCI.APIKey
	case enums.PaymentProviderPawapay:
		return cfg.Pawapay.APIToken
	case enums.PaymentProviderKkiapay:
		return cfg.Kkiapay.PrivateKey
	default:
		return ""
	}
}

func validateSignature(payload []byte, secret, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func parseTransactionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction reference in callback")
	}
	return id, nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Time{}
}
