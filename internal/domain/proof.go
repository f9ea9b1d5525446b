package domain

// ProofStatement is the public triple a delivery proof is bound to.
type ProofStatement struct {
	AddrHashB64  string
	MsgDigestB64 string
	NonceB64     string
}

func StatementFor(p DatPayload) ProofStatement {
	return ProofStatement{
		AddrHashB64:  p.AddrHashB64,
		MsgDigestB64: p.MsgDigestB64,
		NonceB64:     p.NonceB64,
	}
}

// ProofSystem produces and checks proofs over a ProofStatement. Check must
// only accept a proof produced for the identical statement.
type ProofSystem interface {
	Name() string
	Produce(st ProofStatement) ([]byte, error)
	Check(st ProofStatement, proof []byte) (bool, error)
}
