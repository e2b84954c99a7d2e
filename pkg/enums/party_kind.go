package enums

import "fmt"

// PartyKind distinguishes retail customers from wholesale buyers.
type PartyKind string

const (
	PartyKindCustomer       PartyKind = "customer"
	PartyKindWholesaleBuyer PartyKind = "wholesale_buyer"
)

var validPartyKinds = []PartyKind{
	PartyKindCustomer,
	PartyKindWholesaleBuyer,
}

// String implements fmt.Stringer.
func (k PartyKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PartyKind.
func (k PartyKind) IsValid() bool {
	for _, candidate := range validPartyKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePartyKind converts raw input into a PartyKind.
func ParsePartyKind(value string) (PartyKind, error) {
	for _, candidate := range validPartyKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party kind %q", value)
}
