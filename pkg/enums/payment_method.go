package enums

import "fmt"

// PaymentMethod is the caller-selected way to pay a checkout or payout.
type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodOrangeMoney   PaymentMethod = "orange_money"
	PaymentMethodMTNMoney      PaymentMethod = "mtn_money"
	PaymentMethodWave          PaymentMethod = "wave"
	PaymentMethodWaveDirect    PaymentMethod = "wave_direct"
	PaymentMethodMoov          PaymentMethod = "moov"
	PaymentMethodPawapayMTN    PaymentMethod = "pawapay_mtn"
	PaymentMethodPawapayOrange PaymentMethod = "pawapay_orange"
	PaymentMethodKkiapay       PaymentMethod = "kkiapay"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodOrangeMoney,
	PaymentMethodMTNMoney,
	PaymentMethodWave,
	PaymentMethodWaveDirect,
	PaymentMethodMoov,
	PaymentMethodPawapayMTN,
	PaymentMethodPawapayOrange,
	PaymentMethodKkiapay,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentMethods returns every known method, for exhaustive routing checks.
func PaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, len(validPaymentMethods))
	copy(out, validPaymentMethods)
	return out
}
