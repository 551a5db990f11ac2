package chain

import (
	"regexp"

	"github.com/unweightedai/kol-trust-service/internal/errs"
)

// base58-encoded Solana addresses, 32-44 characters.
var addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateAddress rejects malformed token addresses before any RPC
// call is made.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return &errs.ValidationError{Field: "token address", Reason: "not a base58 Solana address"}
	}
	return nil
}

// IsAddress reports whether a string looks like a token address.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}
