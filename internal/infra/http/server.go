package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"zkack/internal/config"
	"zkack/internal/domain"
	"zkack/internal/infra/db"
	"zkack/internal/infra/keys/keystore"
	"zkack/internal/infra/ledgerfile"
	"zkack/internal/infra/ledgermem"
	"zkack/internal/infra/policyopa"
	"zkack/internal/infra/proof"
	"zkack/internal/infra/ratelimit"
	"zkack/internal/logging"
	"zkack/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	apiPrefix           = "/zk-ack/v1"
	defaultMaxBodyBytes = 1 << 20
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	r      *gin.Engine
	now    func() time.Time

	ackUC    *usecase.AcknowledgeDelivery
	verifyUC *usecase.VerifyToken
	receipts *usecase.ReceiptQuery

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	closers []io.Closer
}

// NewServer loads the keystore and opens the configured ledger, proof
// system, admission policy and rate limiter. Any failure is fatal.
func NewServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{cfg: cfg, logger: logger, now: time.Now}
	if err := s.initDeps(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.initRateLimit(nil)
	s.initEngine()
	return s, nil
}

type ServerDeps struct {
	Acknowledge *usecase.AcknowledgeDelivery
	Verify      *usecase.VerifyToken
	Receipts    *usecase.ReceiptQuery
	RateLimiter domain.RateLimiter
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   deps.Logger,
		now:      deps.Now,
		ackUC:    deps.Acknowledge,
		verifyUC: deps.Verify,
		receipts: deps.Receipts,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.initRateLimit(deps.RateLimiter)
	s.initEngine()
	return s
}

func (s *Server) initDeps(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	registry, err := keystore.LoadFile(s.cfg.KeystorePath)
	if err != nil {
		return err
	}

	ledger, err := s.openLedger()
	if err != nil {
		return err
	}

	proofs, err := proof.New(proof.Config{
		Mode:         s.cfg.ProofMode,
		Environment:  s.cfg.Env,
		AttestPubB64: s.cfg.ProofAttestPubB64,
	})
	if err != nil {
		return err
	}

	s.ackUC = &usecase.AcknowledgeDelivery{Keys: registry, Ledger: ledger}
	if proofs != nil {
		s.ackUC.Proofs = proofs
	}
	if s.cfg.AckPolicyPath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(ctx, s.cfg.AckPolicyPath, s.cfg.AckPolicyID)
		if err != nil {
			return fmt.Errorf("load ack policy: %w", err)
		}
		s.ackUC.Policy = engine
		s.logger.Info("ack policy loaded", "bundle_id", s.cfg.AckPolicyID, "bundle_hash", engine.BundleHash())
	}
	s.verifyUC = &usecase.VerifyToken{Keys: registry}
	s.receipts = &usecase.ReceiptQuery{Ledger: ledger}

	s.logger.Info("verifier configured",
		"keys", registry.Len(),
		"ledger", s.cfg.LedgerBackend,
		"proof_mode", s.cfg.ProofMode,
	)
	return nil
}

func (s *Server) openLedger() (usecase.ReceiptLedger, error) {
	switch s.cfg.LedgerBackend {
	case config.LedgerPostgres:
		store, err := db.NewStore(s.cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate receipts: %w", err)
		}
		return db.NewReceiptRepository(store.DB), nil
	case config.LedgerMemory:
		s.logger.Warn("using in-memory ledger; receipts are lost on restart")
		return ledgermem.New(), nil
	default:
		ledger, err := ledgerfile.Open(s.cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, ledger)
		s.logger.Info("opened receipts ledger", "path", ledger.Path())
		return ledger, nil
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			if err == nil {
				s.rateLimiter = limiter
				s.closers = append(s.closers, limiter)
			} else {
				s.logger.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) initEngine() {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(limitBody(s.maxBodyBytes()))
	s.r = r
	s.routes()
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return int64(s.cfg.MaxBodyBytes)
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	s.registerAPI(s.r)
	s.registerAPI(s.r.Group(apiPrefix))
	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) registerAPI(g gin.IRoutes) {
	g.POST("/ack", s.handleAck)
	g.POST("/verify", s.handleVerify)
	g.GET("/receipts", s.handleListReceipts)
	g.GET("/receipts/search", s.handleSearchReceipts)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("zkack verifier listening", "addr", s.cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
