package usecase

import (
	"context"

	"zkack/internal/domain"
	"zkack/internal/infra/crypto"
	"zkack/pkg/dat"
)

type VerifyRequest struct {
	DATJWS       string
	MsgDigestB64 *string
}

type VerifyResponse struct {
	KID         string
	Payload     domain.DatPayload
	DigestMatch *bool
}

// VerifyToken checks an envelope without touching the ledger or the expiry.
type VerifyToken struct {
	Keys domain.KeyLookup
}

func (uc *VerifyToken) Execute(_ context.Context, req VerifyRequest) (*VerifyResponse, error) {
	env, err := dat.ParseAndVerify(req.DATJWS, uc.Keys)
	if err != nil {
		return nil, err
	}
	resp := &VerifyResponse{KID: env.Header.KID, Payload: env.Payload}
	if req.MsgDigestB64 != nil {
		match := crypto.NormalizeB64(*req.MsgDigestB64) == env.Payload.MsgDigestB64
		resp.DigestMatch = &match
	}
	return resp, nil
}
