package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once in main.
type Config struct {
	Server    Server
	Discord   Discord
	NationAPI NationAPI
	Sheets    Sheets
	Refresh   Refresh
	Claims    Claims
	Reconcile Reconcile
	Store     Store
	Redis     RedisConfig
	Postgres  PostgresConfig
	LogLevel  string
	LogFormat string
	DryRun    bool
}

// Server captures the operator HTTP surface.
// An empty AdminToken leaves the mutating task routes closed.
type Server struct {
	Addr       string
	AdminToken string
}

// Discord holds bot credentials and the operator identities that receive
// fault reports.
type Discord struct {
	Token         string
	CommandPrefix string
	OperatorIDs   []string
	// WelcomeChannels maps guild id to the channel used for join greetings.
	WelcomeChannels map[string]string
}

// NationAPI configures the NationStates client.
type NationAPI struct {
	BaseURL   string
	UserAgent string
	Region    string
	Requests  int
	Per       time.Duration
}

// Sheets configures the spreadsheet feeds. BootstrapKey seeds the shared
// credential when none has been stored yet.
type Sheets struct {
	BaseURL           string
	BootstrapKey      string
	CitizensSheet     string
	CitizensRange     string
	ArmySheet         string
	ArmyRange         string
	GovernmentSheet   string
	GovernmentColumns string
}

// Refresh drives the scheduler.
type Refresh struct {
	Period        time.Duration
	FeedMaxTries  int
	CycleMaxTries int
	BaseDelay     time.Duration
}

// Claims configures the claim workflow.
type Claims struct {
	Cooldown       time.Duration
	ConfirmTimeout time.Duration
}

// Reconcile configures role synchronisation.
type Reconcile struct {
	EditsPerSecond float64
	Burst          int
	YieldEvery     int
}

// Store selects the field store backend: memory, redis or postgres.
type Store struct {
	Backend string
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the pgx pool.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:       envString("CITIZENSHIP_ADDR", ":8080"),
			AdminToken: os.Getenv("OPS_ADMIN_TOKEN"),
		},
		Discord: Discord{
			Token:           os.Getenv("DISCORD_TOKEN"),
			CommandPrefix:   envString("DISCORD_PREFIX", "!"),
			OperatorIDs:     envList("DISCORD_OPERATOR_IDS"),
			WelcomeChannels: envPairs("DISCORD_WELCOME_CHANNELS"),
		},
		NationAPI: NationAPI{
			BaseURL:   envString("NS_API_URL", "https://www.nationstates.net/cgi-bin/api.cgi"),
			UserAgent: envString("NS_USER_AGENT", "citizenship role sync"),
			Region:    envString("NS_REGION", "the_north_pacific"),
			Requests:  envInt("NS_RATE_REQUESTS", 50),
			Per:       envDuration("NS_RATE_PER", 30*time.Second),
		},
		Sheets: Sheets{
			BaseURL:           envString("SHEETS_API_URL", "https://sheets.googleapis.com/v4/spreadsheets"),
			BootstrapKey:      os.Getenv("SHEETS_API_KEY"),
			CitizensSheet:     envString("SHEETS_CITIZENS_ID", "1aQ9EplmCzZLz7AmWQwpSXiCPo60AdyGG97PR1lD2tWM"),
			CitizensRange:     envString("SHEETS_CITIZENS_RANGE", "Citizens!D3:D"),
			ArmySheet:         envString("SHEETS_ARMY_ID", "12l7zoYXrV7L_5uXM5HeVoe93ZBU70ypYf3jS1I0TZuE"),
			ArmyRange:         envString("SHEETS_ARMY_RANGE", "Roster!B4:B"),
			GovernmentSheet:   envString("SHEETS_GOVERNMENT_ID", "1hBUA7i7n5-0RXNbItLDHA1lb_D9rKQp4JJ1hc5InD8k"),
			GovernmentColumns: envString("SHEETS_GOVERNMENT_COLUMNS", "A2:C"),
		},
		Refresh: Refresh{
			Period:        envDuration("REFRESH_PERIOD", 12*time.Hour),
			FeedMaxTries:  envInt("REFRESH_FEED_MAX_TRIES", 8),
			CycleMaxTries: envInt("REFRESH_CYCLE_MAX_TRIES", 8),
			BaseDelay:     envDuration("REFRESH_BASE_DELAY", time.Second),
		},
		Claims: Claims{
			Cooldown:       envDuration("CLAIM_COOLDOWN", time.Hour),
			ConfirmTimeout: envDuration("CLAIM_CONFIRM_TIMEOUT", 60*time.Second),
		},
		Reconcile: Reconcile{
			EditsPerSecond: envFloat("RECONCILE_EDITS_PER_SECOND", 5),
			Burst:          envInt("RECONCILE_BURST", 5),
			YieldEvery:     envInt("RECONCILE_YIELD_EVERY", 50),
		},
		Store: Store{
			Backend: envString("STORE_BACKEND", "memory"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(envInt("DATABASE_MAX_CONNS", 4)),
		},
		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "json"),
		DryRun:    os.Getenv("RECONCILE_DRY_RUN") == "true",
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// envList reads a comma separated list.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envPairs reads "k1=v1,k2=v2".
func envPairs(key string) map[string]string {
	out := make(map[string]string)
	for _, item := range envList(key) {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
