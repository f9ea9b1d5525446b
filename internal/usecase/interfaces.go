package usecase

import (
	"context"

	"zkack/internal/domain"
)

// ReceiptLedger is the append-only acknowledgment store. Append assigns the
// ack_id and must be durable before it returns.
type ReceiptLedger interface {
	Append(ctx context.Context, receipt domain.Receipt) (string, error)
	ListAll(ctx context.Context) ([]domain.Receipt, error)
	Search(ctx context.Context, query domain.ReceiptQuery) ([]domain.Receipt, error)
	Count(ctx context.Context) (int, error)
}

type ProofChecker interface {
	Check(st domain.ProofStatement, proof []byte) (bool, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.AckPolicyInput) (domain.PolicyEvaluation, error)
}
