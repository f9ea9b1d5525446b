package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zkack/internal/domain"
)

const DefaultPrefix = "/zk-ack/v1"

// Client talks to a zkack verifier over HTTP.
type Client struct {
	BaseURL    string
	Prefix     string
	HTTPClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

// WithPrefix overrides the route prefix. An empty prefix uses the bare
// /ack, /verify and /receipts routes.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.Prefix = strings.TrimRight(prefix, "/")
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  DefaultPrefix,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// APIError is a non-2xx verifier response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("verifier returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("verifier returned status %d %s: %s", e.Status, e.Code, e.Message)
}

type AckRequest struct {
	DATJWS        string  `json:"dat_jws"`
	Proof         string  `json:"proof"`
	ReceivedTS    string  `json:"received_ts"`
	RecvDomain    string  `json:"recv_domain"`
	RecvDomainSig *string `json:"recv_domain_sig,omitempty"`
	MsgID         *string `json:"msg_id,omitempty"`
	DKIMPass      *bool   `json:"dkim_pass,omitempty"`
}

type AckResponse struct {
	AckID  string `json:"ack_id"`
	Status string `json:"status"`
	KID    string `json:"kid,omitempty"`
}

type VerifyRequest struct {
	DATJWS       string  `json:"dat_jws"`
	MsgDigestB64 *string `json:"msg_digest_b64,omitempty"`
}

type VerifyResponse struct {
	OK          bool              `json:"ok"`
	KID         string            `json:"kid"`
	DAT         domain.DatPayload `json:"dat"`
	DigestMatch *bool             `json:"digest_match"`
}

type SearchQuery struct {
	KID   string
	Since *time.Time
	Limit *int
}

type Health struct {
	Status   string `json:"status"`
	Receipts int    `json:"receipts"`
	Time     string `json:"time"`
}

type receiptsEnvelope struct {
	Receipts []domain.Receipt `json:"receipts"`
}

func (c *Client) Ack(ctx context.Context, req AckRequest) (*AckResponse, error) {
	var out AckResponse
	if err := c.do(ctx, http.MethodPost, c.Prefix+"/ack", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, c.Prefix+"/verify", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAll(ctx context.Context) ([]domain.Receipt, error) {
	var out receiptsEnvelope
	if err := c.do(ctx, http.MethodGet, c.Prefix+"/receipts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Receipts, nil
}

func (c *Client) Search(ctx context.Context, q SearchQuery) ([]domain.Receipt, error) {
	params := url.Values{}
	if q.KID != "" {
		params.Set("kid", q.KID)
	}
	if q.Since != nil {
		params.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	if q.Limit != nil {
		params.Set("limit", strconv.Itoa(*q.Limit))
	}
	var out receiptsEnvelope
	if err := c.do(ctx, http.MethodGet, c.Prefix+"/receipts/search", params, nil, &out); err != nil {
		return nil, err
	}
	return out.Receipts, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	if c == nil {
		return fmt.Errorf("verifier client is nil")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("verifier base URL is required")
	}
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &payload) == nil && payload.Code != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
