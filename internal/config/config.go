package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	LedgerFile     = "file"
	LedgerPostgres = "postgres"
	LedgerMemory   = "memory"

	defaultPort = 8787
)

type Config struct {
	HTTPAddr     string
	MaxBodyBytes int
	Env          string
	LogLevel     string
	LogFormat    string

	KeystorePath string

	LedgerBackend string
	LedgerPath    string
	PostgresDSN   string

	ProofMode         string
	ProofAttestPubB64 string

	AckPolicyPath string
	AckPolicyID   string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// FromEnv reads configuration from the process environment only.
func FromEnv() Config {
	return fromSource(source{})
}

// Load reads the optional YAML file named by ZKACK_CONFIG and overlays the
// environment on top of it. File keys are the lower-cased variable names.
func Load() (Config, error) {
	path := os.Getenv("ZKACK_CONFIG")
	if path == "" {
		return FromEnv(), nil
	}
	file, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	return fromSource(source{file: file}), nil
}

func fromSource(src source) Config {
	addr := src.get("HTTP_ADDR")
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", src.intDefault("ZKACK_PORT", defaultPort))
	}
	dsn := src.get("POSTGRES_DSN")
	backend := src.get("LEDGER_BACKEND")
	if backend == "" {
		backend = LedgerFile
		if dsn != "" {
			backend = LedgerPostgres
		}
	}
	return Config{
		HTTPAddr:               addr,
		MaxBodyBytes:           src.intDefault("MAX_BODY_BYTES", 1<<20),
		Env:                    src.get("ZKACK_ENV"),
		LogLevel:               src.defaultValue("LOG_LEVEL", "info"),
		LogFormat:              src.defaultValue("LOG_FORMAT", "text"),
		KeystorePath:           src.defaultValue("KEYSTORE_PATH", "./keys/pubkeys.json"),
		LedgerBackend:          strings.ToLower(backend),
		LedgerPath:             src.defaultValue("ZKACK_DB_PATH", "./data/receipts/ledger.jsonl"),
		PostgresDSN:            dsn,
		ProofMode:              src.defaultValue("PROOF_MODE", "presence"),
		ProofAttestPubB64:      src.get("PROOF_ATTEST_PUBKEY_B64"),
		AckPolicyPath:          src.get("ACK_POLICY_PATH"),
		AckPolicyID:            src.defaultValue("ACK_POLICY_ID", "default"),
		RateLimitRequests:      src.intDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: src.intDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    src.boolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       src.intDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              src.get("REDIS_ADDR"),
		RedisPassword:          src.get("REDIS_PASSWORD"),
		RedisDB:                src.intDefault("REDIS_DB", 0),
	}
}

func (c Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerFile:
		if c.LedgerPath == "" {
			return errors.New("ZKACK_DB_PATH is required for the file ledger")
		}
	case LedgerPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres ledger")
		}
	case LedgerMemory:
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND %q", c.LedgerBackend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q", c.LogFormat)
	}
	if c.KeystorePath == "" {
		return errors.New("KEYSTORE_PATH is required")
	}
	return nil
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

type source struct {
	file map[string]string
}

func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		if v == nil {
			continue
		}
		out[strings.ToLower(k)] = fmt.Sprint(v)
	}
	return out, nil
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[strings.ToLower(key)]
}

func (s source) defaultValue(key, def string) string {
	v := s.get(key)
	if v == "" {
		return def
	}
	return v
}

func (s source) intDefault(key string, def int) int {
	v := s.get(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func (s source) boolDefault(key string, def bool) bool {
	switch strings.ToLower(s.get(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}
