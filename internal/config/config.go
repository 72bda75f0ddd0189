package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	defaultAppEnv        = "dev"
	defaultHTTPAddr      = ":5000"
	defaultPublicPort    = "5000"
	defaultDataDir       = "./data"
	defaultUploadDir     = "./uploads"
	defaultPairingFile   = "paired_devices.json"
	defaultTicketSecret  = "change-me-pairing-ticket-secret"
	defaultQRTTL         = "15m"
	defaultPairingTTL    = "720h"
	defaultActiveWindow  = "5m"
	defaultMaxUploadSize = "512MiB"
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultAccessLog     = "true"
)

type Config struct {
	AppEnv string

	HTTPAddr   string
	PublicHost string
	PublicPort int

	DataDir         string
	UploadDir       string
	PairingFile     string
	PairingStoreDSN string

	TicketSecret string
	QRTTL        time.Duration
	PairingTTL   time.Duration
	ActiveWindow time.Duration

	MaxUploadSize int64

	TLSCertFile string
	TLSKeyFile  string

	LogLevel  string
	LogFormat string
	AccessLog bool

	CORSAllowedOrigins []string
}

// TLSEnabled reports whether both halves of a certificate pair are set.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

func (c *Config) IsProdLike() bool { return isProdLike(c.AppEnv) }

// Load reads .env (if present), then the environment, then command-line
// flags from args. register may add extra flags to the same set before it
// is parsed.
func Load(name string, args []string, register ...func(*pflag.FlagSet)) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.PublicHost = strings.TrimSpace(getEnv("PUBLIC_HOST", ""))
	cfg.DataDir = strings.TrimSpace(getEnv("DATA_DIR", defaultDataDir))
	cfg.UploadDir = strings.TrimSpace(getEnv("UPLOAD_DIR", defaultUploadDir))
	cfg.PairingFile = strings.TrimSpace(getEnv("PAIRING_FILE", ""))
	cfg.PairingStoreDSN = strings.TrimSpace(getEnv("PAIRING_STORE_DSN", ""))
	cfg.TicketSecret = strings.TrimSpace(getEnv("PAIRING_TICKET_SECRET", defaultTicketSecret))
	cfg.TLSCertFile = strings.TrimSpace(getEnv("TLS_CERT_FILE", ""))
	cfg.TLSKeyFile = strings.TrimSpace(getEnv("TLS_KEY_FILE", ""))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat)))
	cfg.AccessLog = parseBoolEnv("ACCESS_LOG", defaultAccessLog)
	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", ""))

	var err error
	cfg.PublicPort, err = parseIntEnv("PUBLIC_PORT", defaultPublicPort)
	if err != nil {
		return nil, err
	}
	cfg.QRTTL, err = parseDurationEnv("PAIRING_QR_TTL", defaultQRTTL)
	if err != nil {
		return nil, err
	}
	cfg.PairingTTL, err = parseDurationEnv("PAIRING_TTL", defaultPairingTTL)
	if err != nil {
		return nil, err
	}
	cfg.ActiveWindow, err = parseDurationEnv("ACTIVE_WINDOW", defaultActiveWindow)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSize, err = parseSizeEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	fs.StringVar(&cfg.PublicHost, "public-host", cfg.PublicHost, "address phones use to reach this host (default: detected LAN IP)")
	fs.IntVar(&cfg.PublicPort, "public-port", cfg.PublicPort, "port embedded in pairing URLs")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the pairing snapshot")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "root directory for uploaded files")
	fs.StringVar(&cfg.PairingStoreDSN, "pairing-store-dsn", cfg.PairingStoreDSN, "database DSN for pairings (empty: JSON file)")
	fs.StringVar(&cfg.TLSCertFile, "tls-cert", cfg.TLSCertFile, "TLS certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "tls-key", cfg.TLSKeyFile, "TLS private key file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console or json)")
	for _, fn := range register {
		fn(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.PairingFile == "" {
		cfg.PairingFile = filepath.Join(cfg.DataDir, defaultPairingFile)
	}
	if cfg.PublicHost == "" {
		cfg.PublicHost = DetectLANIP()
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.PublicPort <= 0 || cfg.PublicPort > 65535 {
		return fmt.Errorf("PUBLIC_PORT must be between 1 and 65535")
	}
	if cfg.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if cfg.QRTTL <= 0 {
		return fmt.Errorf("PAIRING_QR_TTL must be > 0")
	}
	if cfg.PairingTTL <= 0 {
		return fmt.Errorf("PAIRING_TTL must be > 0")
	}
	if cfg.ActiveWindow <= 0 {
		return fmt.Errorf("ACTIVE_WINDOW must be > 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be one of: console, json")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.TicketSecret, defaultTicketSecret) {
			return fmt.Errorf("in prod/release PAIRING_TICKET_SECRET must be set and not default")
		}
	}

	return nil
}

// DetectLANIP returns the address of the interface used for outbound
// traffic, or 127.0.0.1. Dialing UDP sends no packets.
func DetectLANIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil && !addr.IP.IsUnspecified() {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

// parseSizeEnv accepts plain byte counts as well as "512MiB" or "1GB".
func parseSizeEnv(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return int64(n), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
