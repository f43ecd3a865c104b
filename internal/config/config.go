package config

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "VISITRELAY_"

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline, must cover the geo lookup

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Visit handling
	EntryPath      string // route that records the visit (default "/")
	Destination    string // redirect target, ex: "/views/welcome"
	RedirectStatus int    // 302 by default

	// Telegram
	BotToken       string        // bot identity (secret)
	ChatID         string        // operator chat id or @channel
	TelegramAPIURL string        // ex: https://api.telegram.org
	ParseMode      string        // "HTML" | "Markdown" | "MarkdownV2" | ""
	SendTimeout    time.Duration // HTTP timeout for sendMessage
	AsyncDispatch  bool          // true => deliver from a background queue
	QueueSize      int           // buffered notifications when AsyncDispatch is on

	// Geolocation
	GeoBaseURL  string        // ex: http://ip-api.com
	GeoLang     string        // ex: "de"
	GeoFallback string        // label used when the lookup fails
	GeoTimeout  time.Duration // bound on the lookup
	GeoCacheTTL time.Duration // TTL of cached labels (only with Redis)

	// Redis (optional, enables the geo label cache)
	RedisAddr           string        // empty => cache disabled
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int           // connection pool size
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict healthz/readyz to these IPs/CIDRs
	TrustProxy   bool     // true => take the visitor address from proxy headers
}

// Load resolves the configuration from the environment, an optional .env file
// and an optional YAML file (VISITRELAY_CONFIG_FILE). Environment variables
// win over the YAML file. Invalid or missing required values panic.
func Load() *Config {
	_ = godotenv.Load()

	src := source{}
	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		values, err := loadFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		src.file = values
	}

	cfg := src.build()
	cfg.validate()

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.BotToken = "***REDACTED***"
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (s source) build() *Config {
	return &Config{
		// Server settings
		ListenPort:      s.getenv("LISTEN_PORT", ":8080"),
		ShutdownTimeout: s.mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  s.mustDuration("REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  s.getenv("LOG_LEVEL", "info"),
		PrettyLog: s.mustBool("PRETTY_LOG", true),

		// Visit handling
		EntryPath:      s.getenv("ENTRY_PATH", "/"),
		Destination:    s.requireEnv("DESTINATION"),
		RedirectStatus: s.getenvInt("REDIRECT_STATUS", http.StatusFound),

		// Telegram
		BotToken:       s.requireEnv("BOT_TOKEN"),
		ChatID:         s.requireEnv("CHAT_ID"),
		TelegramAPIURL: strings.TrimRight(s.getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
		ParseMode:      s.getenv("PARSE_MODE", "HTML"),
		SendTimeout:    s.mustDuration("SEND_TIMEOUT", 5*time.Second),
		AsyncDispatch:  s.mustBool("ASYNC_DISPATCH", true),
		QueueSize:      s.getenvInt("QUEUE_SIZE", 256),

		// Geolocation
		GeoBaseURL:  strings.TrimRight(s.getenv("GEO_BASE_URL", "http://ip-api.com"), "/"),
		GeoLang:     s.getenv("GEO_LANG", "de"),
		GeoFallback: s.getenv("GEO_FALLBACK", "Unbekannt"),
		GeoTimeout:  s.mustDuration("GEO_TIMEOUT", 3*time.Second),
		GeoCacheTTL: s.mustDuration("GEO_CACHE_TTL", 24*time.Hour),

		// Redis settings
		RedisAddr:           s.getenv("REDIS_ADDR", ""),
		RedisUser:           s.getenv("REDIS_USERNAME", ""),
		RedisPassword:       s.getenv("REDIS_PASSWORD", ""),
		RedisDB:             s.getenvInt("REDIS_DB", 0),
		RedisDT:             s.mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             s.mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             s.mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        s.mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    s.mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       s.getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: s.mustDuration("REDIS_CONNECT_TIMEOUT", 15*time.Second),
		RedisRetryInterval:  s.mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  s.getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: splitAndTrim(s.getenv("ALLOWED_CIDRS", "")),
		TrustProxy:   s.mustBool("TRUST_PROXY", false),
	}
}

func (c *Config) validate() {
	switch c.RedirectStatus {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		panic(fmt.Sprintf("❌ FATAL: %sREDIRECT_STATUS must be a 3xx redirect code, got %d", envPrefix, c.RedirectStatus))
	}

	switch c.ParseMode {
	case "", "HTML", "Markdown", "MarkdownV2":
	default:
		panic(fmt.Sprintf("❌ FATAL: %sPARSE_MODE %q is not supported", envPrefix, c.ParseMode))
	}

	if !strings.HasPrefix(c.EntryPath, "/") {
		panic(fmt.Sprintf("❌ FATAL: %sENTRY_PATH must start with '/', got %q", envPrefix, c.EntryPath))
	}

	if c.AsyncDispatch && c.QueueSize < 1 {
		panic(fmt.Sprintf("❌ FATAL: %sQUEUE_SIZE must be >= 1 when async dispatch is enabled", envPrefix))
	}

	// The redirect is written only after the relay returns, so its worst case
	// must fit in the request deadline.
	if c.RequestTimeout <= 0 {
		panic(fmt.Sprintf("❌ FATAL: %sREQUEST_TIMEOUT must be > 0", envPrefix))
	}
	budget := c.GeoTimeout
	if !c.AsyncDispatch {
		budget += c.SendTimeout
	}
	if budget >= c.RequestTimeout {
		panic(fmt.Sprintf("❌ FATAL: %sREQUEST_TIMEOUT (%s) must exceed the visit path worst case (%s: geo timeout%s)",
			envPrefix, c.RequestTimeout, budget, syncSuffix(c.AsyncDispatch)))
	}
}

func syncSuffix(async bool) string {
	if async {
		return ""
	}
	return " + send timeout"
}

// source resolves keys (without prefix) from the environment first, then
// from the optional YAML file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return s.file[strings.ToLower(key)]
}

func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) requireEnv(key string) string {
	v := s.lookup(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s%s is not set", envPrefix, key))
	}
	return v
}

func (s source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (s source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// loadFile reads a flat YAML mapping, ex:
//
//	destination: /views/welcome
//	geo_lang: en
//	async_dispatch: false
//
// Keys are the environment variable names without prefix, lowercased.
func loadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return values, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
