package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zkack/internal/domain"
	"zkack/internal/usecase"

	"github.com/gin-gonic/gin"
)

const errorCodeKey = "error_code"

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ackRequest struct {
	DATJWS        string  `json:"dat_jws"`
	Proof         string  `json:"proof"`
	ReceivedTS    string  `json:"received_ts"`
	RecvDomain    string  `json:"recv_domain"`
	RecvDomainSig *string `json:"recv_domain_sig"`
	MsgID         *string `json:"msg_id"`
	DKIMPass      *bool   `json:"dkim_pass"`
}

type ackResponse struct {
	AckID  string `json:"ack_id"`
	Status string `json:"status"`
	KID    string `json:"kid,omitempty"`
}

type verifyRequest struct {
	DATJWS       string  `json:"dat_jws"`
	MsgDigestB64 *string `json:"msg_digest_b64"`
}

type verifyResponse struct {
	OK          bool              `json:"ok"`
	KID         string            `json:"kid"`
	DAT         domain.DatPayload `json:"dat"`
	DigestMatch *bool             `json:"digest_match"`
}

type receiptsResponse struct {
	Receipts []domain.Receipt `json:"receipts"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Receipts int    `json:"receipts"`
	Time     string `json:"time"`
}

func (s *Server) handleAck(c *gin.Context) {
	if s.ackUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeAck) {
		return
	}
	var req ackRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Proof) == "" {
		writeError(c, domain.ErrEmptyProof)
		return
	}
	if req.ReceivedTS == "" {
		writeErrorCode(c, http.StatusBadRequest, "RECEIVED_TS_REQUIRED", "received_ts is required")
		return
	}
	if req.RecvDomain == "" {
		writeErrorCode(c, http.StatusBadRequest, "RECV_DOMAIN_REQUIRED", "recv_domain is required")
		return
	}
	resp, err := s.ackUC.Execute(c.Request.Context(), usecase.AcknowledgeRequest{
		DATJWS:        req.DATJWS,
		Proof:         req.Proof,
		ReceivedTS:    req.ReceivedTS,
		RecvDomain:    req.RecvDomain,
		RecvDomainSig: req.RecvDomainSig,
		MsgID:         req.MsgID,
		DKIMPass:      req.DKIMPass,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.logger.Info("ack stored", "ack_id", resp.AckID, "kid", resp.KID)
	c.JSON(http.StatusOK, ackResponse{AckID: resp.AckID, Status: resp.Status, KID: resp.KID})
}

func (s *Server) handleVerify(c *gin.Context) {
	if s.verifyUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if !s.enforceRateLimit(c, routeVerify) {
		return
	}
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := s.verifyUC.Execute(c.Request.Context(), usecase.VerifyRequest{
		DATJWS:       req.DATJWS,
		MsgDigestB64: req.MsgDigestB64,
	})
	if err != nil {
		writeErrorWithEnvelopeStatus(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, verifyResponse{
		OK:          true,
		KID:         resp.KID,
		DAT:         resp.Payload,
		DigestMatch: resp.DigestMatch,
	})
}

func (s *Server) handleListReceipts(c *gin.Context) {
	if s.receipts == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	receipts, err := s.receipts.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiptsResponse{Receipts: nonNil(receipts)})
}

func (s *Server) handleSearchReceipts(c *gin.Context) {
	if s.receipts == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	query, err := parseReceiptQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	receipts, err := s.receipts.Search(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receiptsResponse{Receipts: nonNil(receipts)})
}

func (s *Server) handleHealth(c *gin.Context) {
	now := s.now().UTC().Format(time.RFC3339)
	if s.receipts == nil {
		c.JSON(http.StatusOK, healthResponse{Status: "ok", Time: now})
		return
	}
	count, err := s.receipts.Count(c.Request.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Time: now})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Receipts: count, Time: now})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

// parseReceiptQuery reads kid, since and limit. An unparseable since is
// ignored; an unparseable limit is rejected.
func parseReceiptQuery(c *gin.Context) (domain.ReceiptQuery, error) {
	var q domain.ReceiptQuery
	q.KID = strings.TrimSpace(c.Query("kid"))
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			q.Since = &since
		}
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ReceiptQuery{}, domain.ErrMalformedQuery
		}
		q.Limit = &limit
	}
	return q, nil
}

func nonNil(receipts []domain.Receipt) []domain.Receipt {
	if receipts == nil {
		return []domain.Receipt{}
	}
	return receipts
}

func writeError(c *gin.Context, err error) {
	writeErrorWithEnvelopeStatus(c, err, http.StatusUnprocessableEntity)
}

func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErrorCode(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		return false
	}
	writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
	return false
}

func writeErrorWithEnvelopeStatus(c *gin.Context, err error, envelopeStatus int) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrEmptyProof):
		status, code = http.StatusBadRequest, "EMPTY_PROOF"
	case errors.Is(err, domain.ErrMalformedEnvelope):
		status, code = envelopeStatus, "MALFORMED_ENVELOPE"
	case errors.Is(err, domain.ErrUnsupportedAlgorithm):
		status, code = envelopeStatus, "UNSUPPORTED_ALGORITHM"
	case errors.Is(err, domain.ErrUnknownKeyID):
		status, code = envelopeStatus, "KEY_UNKNOWN"
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code = envelopeStatus, "SIGNATURE_INVALID"
	case errors.Is(err, domain.ErrDATExpired):
		status, code = http.StatusUnprocessableEntity, "DAT_EXPIRED"
	case errors.Is(err, domain.ErrExpiryInvalid):
		status, code = http.StatusUnprocessableEntity, "EXPIRY_INVALID"
	case errors.Is(err, domain.ErrProofInvalid):
		status, code = http.StatusUnprocessableEntity, "PROOF_INVALID"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusUnprocessableEntity, "POLICY_DENIED"
	case errors.Is(err, domain.ErrMalformedQuery):
		status, code = http.StatusBadRequest, "MALFORMED_QUERY"
	case errors.Is(err, domain.ErrStorage):
		status, code = http.StatusInternalServerError, "STORAGE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.Set(errorCodeKey, code)
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
