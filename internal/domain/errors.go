package domain

import (
	"errors"
	"fmt"
)

// ErrEnvelopeInvalid is the parent of every envelope failure; callers that
// only care about the class can match it with errors.Is.
var ErrEnvelopeInvalid = errors.New("envelope invalid")

var (
	ErrMalformedEnvelope    = fmt.Errorf("%w: malformed envelope", ErrEnvelopeInvalid)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported alg", ErrEnvelopeInvalid)
	ErrUnknownKeyID         = fmt.Errorf("%w: unknown kid", ErrEnvelopeInvalid)
	ErrSignatureInvalid     = fmt.Errorf("%w: signature invalid", ErrEnvelopeInvalid)
)

var (
	ErrEmptyProof     = errors.New("empty proof")
	ErrProofInvalid   = errors.New("proof invalid")
	ErrDATExpired     = errors.New("DAT expired")
	ErrExpiryInvalid  = errors.New("invalid DAT exp")
	ErrPolicyDenied   = errors.New("acknowledgment denied by policy")
	ErrStorage        = errors.New("storage error")
	ErrMalformedQuery = errors.New("malformed query parameter")
	ErrNotFound       = errors.New("not found")
)
