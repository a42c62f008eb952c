package types

import (
	"strings"

	"github.com/roamledger/roamledger/errors"
)

// Identity is the user-chosen identification record. Exactly one exists per
// local store; the value is an 11-digit numeric string. No checksum is
// enforced, matching the paper forms the value is copied from.
type Identity struct {
	Value string `json:"identityValue"`
}

// NormalizeIdentity strips display punctuation and whitespace, keeping digits only.
func NormalizeIdentity(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks the shape of the identity value: exactly 11 digits.
func (i Identity) Validate() error {
	if len(i.Value) != 11 {
		return errors.ValidationFailed("Invalid identity", "identity value must be exactly 11 digits")
	}
	for _, r := range i.Value {
		if r < '0' || r > '9' {
			return errors.ValidationFailed("Invalid identity", "identity value must contain digits only")
		}
	}
	return nil
}

// Display renders the value with the conventional punctuation, XXX.XXX.XXX-XX.
// Values of unexpected length are returned unchanged.
func (i Identity) Display() string {
	if len(i.Value) != 11 {
		return i.Value
	}
	return i.Value[0:3] + "." + i.Value[3:6] + "." + i.Value[6:9] + "-" + i.Value[9:11]
}

// String provides the raw identity value.
func (i Identity) String() string {
	return i.Value
}
