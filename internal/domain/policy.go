package domain

// AckPolicyInput is the document an admission policy evaluates before a
// receipt is written.
type AckPolicyInput struct {
	KID        string     `json:"kid"`
	DAT        DatPayload `json:"dat"`
	RecvDomain string     `json:"recv_domain"`
	DKIMPass   bool       `json:"dkim_pass"`
	MsgID      string     `json:"msg_id,omitempty"`
	ReceivedTS string     `json:"received_ts"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
