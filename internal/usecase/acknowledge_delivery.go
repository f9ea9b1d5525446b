package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zkack/internal/domain"
	"zkack/pkg/dat"
)

type AcknowledgeRequest struct {
	DATJWS        string
	Proof         string
	ReceivedTS    string
	RecvDomain    string
	RecvDomainSig *string
	MsgID         *string
	DKIMPass      *bool
}

type AcknowledgeResponse struct {
	AckID  string
	Status string
	KID    string
}

// AcknowledgeDelivery accepts a verified, unexpired token and records a
// receipt. Proofs and Policy are optional gates; when Proofs is nil only the
// presence of a proof artifact is required.
type AcknowledgeDelivery struct {
	Keys   domain.KeyLookup
	Ledger ReceiptLedger
	Proofs ProofChecker
	Policy PolicyEngine
	Now    func() time.Time
}

func (uc *AcknowledgeDelivery) Execute(ctx context.Context, req AcknowledgeRequest) (*AcknowledgeResponse, error) {
	if strings.TrimSpace(req.Proof) == "" {
		return nil, domain.ErrEmptyProof
	}
	if uc.Ledger == nil {
		return nil, errors.New("receipt ledger is not configured")
	}

	env, err := dat.ParseAndVerify(req.DATJWS, uc.Keys)
	if err != nil {
		return nil, err
	}

	exp, err := env.Payload.ExpiresAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExpiryInvalid, err)
	}
	now := uc.now()
	if now.After(exp) {
		return nil, domain.ErrDATExpired
	}

	if uc.Proofs != nil {
		ok, err := uc.Proofs.Check(domain.StatementFor(env.Payload), []byte(req.Proof))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProofInvalid, err)
		}
		if !ok {
			return nil, domain.ErrProofInvalid
		}
	}

	dkimPass := true
	if req.DKIMPass != nil {
		dkimPass = *req.DKIMPass
	}

	if uc.Policy != nil {
		input := domain.AckPolicyInput{
			KID:        env.Header.KID,
			DAT:        env.Payload,
			RecvDomain: req.RecvDomain,
			DKIMPass:   dkimPass,
			ReceivedTS: req.ReceivedTS,
		}
		if req.MsgID != nil {
			input.MsgID = *req.MsgID
		}
		eval, err := uc.Policy.Evaluate(ctx, input)
		if err != nil {
			return nil, err
		}
		if !eval.Result.Allow {
			return nil, policyDenied(eval.Result.Deny)
		}
	}

	receipt := domain.Receipt{
		KID:           env.Header.KID,
		DAT:           env.Payload,
		ReceivedTS:    req.ReceivedTS,
		RecvDomain:    req.RecvDomain,
		RecvDomainSig: req.RecvDomainSig,
		MsgID:         req.MsgID,
		DKIMPass:      dkimPass,
		StoredAt:      now.UTC().Format(time.RFC3339Nano),
	}
	ackID, err := uc.Ledger.Append(ctx, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return &AcknowledgeResponse{
		AckID:  ackID,
		Status: domain.AckStatusDelivered,
		KID:    env.Header.KID,
	}, nil
}

func (uc *AcknowledgeDelivery) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func policyDenied(deny []domain.PolicyDeny) error {
	if len(deny) == 0 {
		return domain.ErrPolicyDenied
	}
	codes := make([]string, 0, len(deny))
	for _, d := range deny {
		codes = append(codes, d.Code)
	}
	return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, strings.Join(codes, ", "))
}
