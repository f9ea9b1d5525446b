package domain

import (
	"testing"
	"time"
)

func stored(id, kid, at string) Receipt {
	return Receipt{AckID: id, KID: kid, StoredAt: at}
}

func ids(receipts []Receipt) []string {
	out := make([]string, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, r.AckID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReceiptQuerySinceOrdering(t *testing.T) {
	receipts := []Receipt{
		stored("r2", "k", "2026-01-01T02:00:00Z"),
		stored("r1", "k", "2026-01-01T01:00:00Z"),
		stored("r3", "k", "2026-01-01T03:00:00Z"),
	}
	since := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	got := ids(ReceiptQuery{Since: &since}.Apply(receipts))
	if !equalIDs(got, []string{"r3", "r2"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestReceiptQueryLimitKeepsNewest(t *testing.T) {
	var receipts []Receipt
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		receipts = append(receipts, stored(id, "k", base.Add(time.Duration((i*3)%5)*time.Minute).Format(time.RFC3339Nano)))
	}
	limit := 1
	got := ids(ReceiptQuery{Limit: &limit}.Apply(receipts))
	// minutes: a=0 b=3 c=1 d=4 e=2
	if !equalIDs(got, []string{"d"}) {
		t.Fatalf("unexpected limit result %v", got)
	}
	zero := 0
	if got := (ReceiptQuery{Limit: &zero}).Apply(receipts); len(got) != 0 {
		t.Fatalf("limit 0 should return nothing, got %v", ids(got))
	}
}

func TestReceiptQueryKIDFilter(t *testing.T) {
	receipts := []Receipt{
		stored("a", "k1", "2026-01-01T01:00:00Z"),
		stored("b", "k2", "2026-01-01T02:00:00Z"),
		stored("c", "k1", "2026-01-01T03:00:00Z"),
	}
	got := ids(ReceiptQuery{KID: "k1"}.Apply(receipts))
	if !equalIDs(got, []string{"c", "a"}) {
		t.Fatalf("unexpected kid result %v", got)
	}
	if got := (ReceiptQuery{KID: "k9"}).Apply(receipts); len(got) != 0 {
		t.Fatalf("unknown kid should match nothing, got %v", ids(got))
	}
}

func TestReceiptQueryUnparseableStoredAt(t *testing.T) {
	receipts := []Receipt{
		stored("bad", "k", "yesterday"),
		stored("old", "k", "2026-01-01T01:00:00Z"),
		stored("new", "k", "2026-01-01T03:00:00Z"),
	}
	got := ids(ReceiptQuery{}.Apply(receipts))
	if !equalIDs(got, []string{"new", "old", "bad"}) {
		t.Fatalf("without since, unparseable records sort last: %v", got)
	}
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got = ids(ReceiptQuery{Since: &since}.Apply(receipts))
	if !equalIDs(got, []string{"new", "old"}) {
		t.Fatalf("with since, unparseable records are dropped: %v", got)
	}
}

func TestReceiptQueryStableTies(t *testing.T) {
	receipts := []Receipt{
		stored("first", "k", "2026-01-01T01:00:00Z"),
		stored("second", "k", "2026-01-01T01:00:00Z"),
	}
	got := ids(ReceiptQuery{}.Apply(receipts))
	if !equalIDs(got, []string{"first", "second"}) {
		t.Fatalf("ties should keep storage order: %v", got)
	}
}

func TestReceiptStoredTimeNano(t *testing.T) {
	r := stored("a", "k", "2026-01-01T01:00:00.123456789Z")
	at, ok := r.StoredTime()
	if !ok || at.Nanosecond() != 123456789 {
		t.Fatalf("fractional stored_at not parsed: %v %v", at, ok)
	}
}
