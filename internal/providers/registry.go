package providers

import (
	"strings"

	"go.uber.org/multierr"

	"github.com/kbrayane/immoflow-backend/pkg/config"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// Registry holds the closed set of provider adapters. It is built once from
// configuration; a method that resolves to a provider with missing
// credentials never gets past construction.
type Registry struct {
	fedapay *FedapayAdapter
	wave    *WaveAdapter
	pawapay *PawapayAdapter
	kkiapay *KkiapayAdapter
}

// NewRegistry validates provider credentials and wires the adapters.
func NewRegistry(cfg config.ProvidersConfig) (*Registry, error) {
	var errs []error
	if strings.TrimSpace(cfg.Fedapay.SecretKey) == "" {
		errs = append(errs, pkgerrors.New(pkgerrors.CodeConfiguration, "fedapay secret key is required"))
	}
	if strings.TrimSpace(cfg.WaveCI.APIKey) == "" {
		errs = append(errs, pkgerrors.New(pkgerrors.CodeConfiguration, "wave api key is required"))
	}
	if strings.TrimSpace(cfg.Pawapay.APIToken) == "" {
		errs = append(errs, pkgerrors.New(pkgerrors.CodeConfiguration, "pawapay api token is required"))
	}
	if strings.TrimSpace(cfg.Pawapay.CountryCode) == "" {
		errs = append(errs, pkgerrors.New(pkgerrors.CodeConfiguration, "pawapay country code is required"))
	}
	if strings.TrimSpace(cfg.Kkiapay.PublicKey) == "" || strings.TrimSpace(cfg.Kkiapay.PrivateKey) == "" {
		errs = append(errs, pkgerrors.New(pkgerrors.CodeConfiguration, "kkiapay key pair is required"))
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return nil, combined
	}

	return &Registry{
		fedapay: &FedapayAdapter{cfg: cfg.Fedapay},
		wave:    &WaveAdapter{cfg: cfg.WaveCI},
		pawapay: &PawapayAdapter{cfg: cfg.Pawapay},
		kkiapay: &KkiapayAdapter{cfg: cfg.Kkiapay},
	}, nil
}

// Resolve returns the single adapter serving the given payment method.
func (r *Registry) Resolve(method enums.PaymentMethod) (Adapter, error) {
	provider, err := ProviderFor(method)
	if err != nil {
		return nil, err
	}
	switch provider {
	case enums.PaymentProviderFedapay:
		return r.fedapay, nil
	case enums.PaymentProviderWaveCI:
		return r.wave, nil
	case enums.PaymentProviderPawapay:
		return r.pawapay, nil
	case enums.PaymentProviderKkiapay:
		return r.kkiapay, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no adapter registered for provider").
			WithDetails(map[string]any{"provider": provider.String()})
	}
}
