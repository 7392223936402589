package enums

import "fmt"

// CheckoutOutcome is the three-way result the UI must branch on after a
// checkout dispatch.
type CheckoutOutcome string

const (
	// CheckoutOutcomeRedirect carries a provider-hosted payment URL.
	CheckoutOutcomeRedirect CheckoutOutcome = "redirect"
	// CheckoutOutcomePushPending means a USSD/push prompt was sent to the
	// customer's phone and the transaction stays pending.
	CheckoutOutcomePushPending CheckoutOutcome = "push_pending"
	// CheckoutOutcomeImmediateSuccess means no provider call was needed
	// (zero-price plan or fully covered by proration credit).
	CheckoutOutcomeImmediateSuccess CheckoutOutcome = "immediate_success"
)

var validCheckoutOutcomes = []CheckoutOutcome{
	CheckoutOutcomeRedirect,
	CheckoutOutcomePushPending,
	CheckoutOutcomeImmediateSuccess,
}

// String implements fmt.Stringer.
func (c CheckoutOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutOutcome.
func (c CheckoutOutcome) IsValid() bool {
	for _, candidate := range validCheckoutOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutOutcome converts raw input into a CheckoutOutcome.
func ParseCheckoutOutcome(value string) (CheckoutOutcome, error) {
	for _, candidate := range validCheckoutOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout outcome %q", value)
}
