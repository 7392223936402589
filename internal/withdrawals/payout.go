package withdrawals

import (
	"context"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// UnimplementedPayoutClient satisfies PayoutClient for deployments that have
// not wired payout rails yet. Processing attempts fail and the request flips
// to failed, restoring the reserved balance; funds never leave limbo.
type UnimplementedPayoutClient struct{}

var _ PayoutClient = UnimplementedPayoutClient{}

func (UnimplementedPayoutClient) Payout(ctx context.Context, req *models.WithdrawalRequest) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeDependency, "no payout transport configured")
}
