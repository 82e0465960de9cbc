// Package common defines shared sentinel errors used across the keywarden
// watchdog layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conditional update conflict")

	// Time parsing (malformed stored timestamp — skip the record for the tick).
	ErrBadTimestamp = errors.New("malformed timestamp")

	// Release engine errors (quarantine, operator action required).
	ErrEnvelopeDecrypt = errors.New("envelope decrypt failed")
	ErrKeyBurned       = errors.New("key storage already burned")

	// Mail transport errors (retry next tick).
	ErrDelivery = errors.New("delivery failed")

	// Claim token errors.
	ErrInvalidToken = errors.New("invalid token")
)
