package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/Luks-code/luna-sub000/internal/api"
	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/store"
	"github.com/Luks-code/luna-sub000/internal/util"
	"github.com/Luks-code/luna-sub000/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Luna state data
	DefaultStateDir = "/var/lib/luna"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "luna.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	waOpts := buildWhatsAppOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping Luna with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "transport", *flags.transport)
	if err := api.Run(waOpts, storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("Luna failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Luna exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir       string
	DatabaseURL    string
	WhatsAppDSN    string
	RedisAddr      string
	RedisPassword  string
	WeaviateHost   string
	WeaviateScheme string
	WeaviateClass  string
	OpenAIKey      string
	OpenAIModel    string
	APIAddr        string
	Transport      string
	SessionTTLMin  int
	HistoryLimit   int
	DebounceSecs   int
}

// Flags holds command line flag values
type Flags struct {
	qrOutput      *string
	numeric       *bool
	stateDir      *string
	dbDSN         *string
	waDSN         *string
	redisAddr     *string
	weaviateHost  *string
	openaiKey     *string
	openaiModel   *string
	apiAddr       *string
	transport     *string
	sessionTTLMin *int
	historyLimit  *int
	debounceSecs  *int

	redisPassword  string
	weaviateScheme string
	weaviateClass  string
}

// initializeLogger sets up structured logging. Debug level is opt-in via
// LUNA_DEBUG.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LUNA_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// a .env file if present.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       os.Getenv("LUNA_STATE_DIR"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		WhatsAppDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		WeaviateHost:   os.Getenv("WEAVIATE_HOST"),
		WeaviateScheme: os.Getenv("WEAVIATE_SCHEME"),
		WeaviateClass:  os.Getenv("WEAVIATE_CLASS"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		APIAddr:        os.Getenv("API_ADDR"),
		Transport:      os.Getenv("LUNA_TRANSPORT"),
		SessionTTLMin:  util.ParseIntEnv("SESSION_TTL_MINUTES", 0),
		HistoryLimit:   util.ParseIntEnv("HISTORY_LIMIT", 0),
		DebounceSecs:   util.ParseIntEnv("DEBOUNCE_SECONDS", 0),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LUNA_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	// The complaint store and the whatsmeow session share the DATABASE_URL
	// default unless WHATSAPP_DB_DSN overrides the latter.
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = config.DatabaseURL
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, "whatsmeow.db")
	}

	slog.Debug("environment variables loaded",
		"LUNA_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"WEAVIATE_HOST_SET", config.WeaviateHost != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"LUNA_TRANSPORT", config.Transport)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:      flag.String("qr-output", "", "path to write login QR code"),
		numeric:       flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for Luna data (overrides $LUNA_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the complaint store (overrides $DATABASE_URL)"),
		waDSN:         flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session (overrides $WHATSAPP_DB_DSN)"),
		redisAddr:     flag.String("redis-addr", config.RedisAddr, "Redis address for session storage (overrides $REDIS_ADDR)"),
		weaviateHost:  flag.String("weaviate-host", config.WeaviateHost, "Weaviate host for document retrieval (overrides $WEAVIATE_HOST)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:   flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		transport:     flag.String("transport", config.Transport, "messaging transport: whatsapp or twilio (overrides $LUNA_TRANSPORT)"),
		sessionTTLMin: flag.Int("session-ttl-minutes", config.SessionTTLMin, "conversation session expiry in minutes (overrides $SESSION_TTL_MINUTES)"),
		historyLimit:  flag.Int("history-limit", config.HistoryLimit, "bounded per-session message history length (overrides $HISTORY_LIMIT)"),
		debounceSecs:  flag.Int("debounce-seconds", config.DebounceSecs, "inbound message coalescing window in seconds (overrides $DEBOUNCE_SECONDS)"),

		redisPassword:  config.RedisPassword,
		weaviateScheme: config.WeaviateScheme,
		weaviateClass:  config.WeaviateClass,
	}

	flag.Parse()

	// Follow an overridden state directory with the default-derived DSNs.
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		if *flags.waDSN == filepath.Join(config.StateDir, "whatsmeow.db") {
			*flags.waDSN = filepath.Join(*flags.stateDir, "whatsmeow.db")
		}
	}

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based DSNs.
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.dbDSN, *flags.waDSN} {
		if dsn == "" || store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	return nil
}

// buildWhatsAppOptions constructs WhatsApp client options.
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.waDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
	}
	return waOpts
}

// buildStoreOptions constructs complaint store options.
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs completion client options.
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server options.
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.transport != "" {
		apiOpts = append(apiOpts, api.WithTransport(*flags.transport))
	}
	if *flags.redisAddr != "" {
		apiOpts = append(apiOpts, api.WithRedisAddr(*flags.redisAddr))
		if flags.redisPassword != "" {
			apiOpts = append(apiOpts, api.WithRedisPassword(flags.redisPassword))
		}
	}
	if *flags.weaviateHost != "" {
		apiOpts = append(apiOpts, api.WithWeaviate(*flags.weaviateHost, flags.weaviateScheme, flags.weaviateClass))
	}
	if *flags.sessionTTLMin > 0 {
		apiOpts = append(apiOpts, api.WithSessionTTL(time.Duration(*flags.sessionTTLMin)*time.Minute))
	}
	if *flags.historyLimit > 0 {
		apiOpts = append(apiOpts, api.WithHistoryLimit(*flags.historyLimit))
	}
	if *flags.debounceSecs > 0 {
		apiOpts = append(apiOpts, api.WithDebounceWindow(time.Duration(*flags.debounceSecs)*time.Second))
	}
	return apiOpts
}
