package domain

import (
	"sort"
	"time"
)

const AckStatusDelivered = "DELIVERED"

// Receipt is one accepted acknowledgment. AckID and StoredAt are assigned by
// the verifier; optional receiver fields serialize as null when absent.
type Receipt struct {
	AckID         string     `json:"ack_id"`
	KID           string     `json:"kid"`
	DAT           DatPayload `json:"dat"`
	ReceivedTS    string     `json:"received_ts"`
	RecvDomain    string     `json:"recv_domain"`
	RecvDomainSig *string    `json:"recv_domain_sig"`
	MsgID         *string    `json:"msg_id"`
	DKIMPass      bool       `json:"dkim_pass"`
	StoredAt      string     `json:"stored_at"`
}

func (r Receipt) StoredTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.StoredAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReceiptQuery filters, orders and caps a ledger scan. A zero value keeps
// every record.
type ReceiptQuery struct {
	KID   string
	Since *time.Time
	Limit *int
}

// Apply keeps receipts matching KID and Since, orders them newest stored_at
// first and truncates to Limit. Records with an unparseable stored_at are
// dropped only while Since is set and otherwise sort after all others.
func (q ReceiptQuery) Apply(receipts []Receipt) []Receipt {
	type candidate struct {
		receipt  Receipt
		storedAt time.Time
		parsed   bool
	}
	kept := make([]candidate, 0, len(receipts))
	for _, r := range receipts {
		if q.KID != "" && r.KID != q.KID {
			continue
		}
		storedAt, parsed := r.StoredTime()
		if q.Since != nil && (!parsed || storedAt.Before(*q.Since)) {
			continue
		}
		kept = append(kept, candidate{receipt: r, storedAt: storedAt, parsed: parsed})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].parsed != kept[j].parsed {
			return kept[i].parsed
		}
		return kept[i].storedAt.After(kept[j].storedAt)
	})
	if q.Limit != nil && len(kept) > *q.Limit {
		kept = kept[:*q.Limit]
	}
	out := make([]Receipt, 0, len(kept))
	for _, c := range kept {
		out = append(out, c.receipt)
	}
	return out
}
