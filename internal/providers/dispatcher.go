package providers

import (
	"context"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// UnimplementedDispatcher satisfies Dispatcher for deployments that have not
// wired a provider transport yet. Every dispatch fails before anything
// reaches the provider, so the transaction can safely be marked failed;
// nothing is ever marked paid without a provider round trip.
type UnimplementedDispatcher struct{}

var _ Dispatcher = UnimplementedDispatcher{}

func (UnimplementedDispatcher) Dispatch(ctx context.Context, provider enums.PaymentProvider, payload any) (*Response, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "no transport configured for provider").
		WithDetails(map[string]any{"provider": provider.String()})
}
