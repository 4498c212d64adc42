package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/api"
	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/store"
	"github.com/BTreeMap/SupportPipe/internal/util"
	"github.com/joho/godotenv"
)

func main() {
	// Initialize structured logger
	initializeLogger(util.ParseBoolEnv("SUPPORTPIPE_DEBUG", false))

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if *flags.debug {
		initializeLogger(true)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping SupportPipe with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("SupportPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SupportPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	OpenAIKey       string
	OpenAIModel     string
	OpenAIBaseURL   string
	APIAddr         string
	OrdersCSV       string
	OrdersDBDriver  string
	OrdersDBDSN     string
	OrdersTable     string
	ProviderTimeout time.Duration
	AllowedOrigins  []string
	SessionTTL      time.Duration
	PruneSchedule   string
	Debug           bool
}

// Flags holds command line flag values
type Flags struct {
	openaiKey       *string
	openaiModel     *string
	openaiBaseURL   *string
	apiAddr         *string
	ordersCSV       *string
	ordersDBDriver  *string
	ordersDBDSN     *string
	ordersTable     *string
	providerTimeout *time.Duration
	allowedOrigins  *string
	sessionTTL      *time.Duration
	pruneSchedule   *string
	debug           *bool
}

// initializeLogger sets up structured logging, at debug level when requested
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		APIAddr:         os.Getenv("API_ADDR"),
		OrdersCSV:       os.Getenv("ORDERS_CSV"),
		OrdersDBDriver:  os.Getenv("ORDERS_DB_DRIVER"),
		OrdersDBDSN:     os.Getenv("ORDERS_DB_DSN"),
		OrdersTable:     os.Getenv("ORDERS_TABLE"),
		ProviderTimeout: util.ParseDurationEnv("PROVIDER_TIMEOUT", genai.DefaultTimeout),
		AllowedOrigins:  util.ParseListEnv("CORS_ALLOWED_ORIGINS", api.DefaultAllowedOrigins),
		SessionTTL:      util.ParseNonNegativeDurationEnv("SESSION_TTL", api.DefaultSessionTTL),
		PruneSchedule:   os.Getenv("SESSION_PRUNE_SCHEDULE"),
		Debug:           util.ParseBoolEnv("SUPPORTPIPE_DEBUG", false),
	}

	if config.OpenAIModel == "" {
		config.OpenAIModel = genai.DefaultModel
		slog.Debug("No OPENAI_MODEL set, using default", "model", config.OpenAIModel)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	if config.OrdersCSV == "" {
		config.OrdersCSV = store.DefaultCSVPath
	}
	if config.OrdersTable == "" {
		config.OrdersTable = store.DefaultOrdersTable
	}
	if config.PruneSchedule == "" {
		config.PruneSchedule = api.DefaultPruneSchedule
	}

	slog.Debug("environment variables loaded",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"OPENAI_BASE_URL_SET", config.OpenAIBaseURL != "",
		"API_ADDR", config.APIAddr,
		"ORDERS_CSV", config.OrdersCSV,
		"ORDERS_DB_DRIVER", config.OrdersDBDriver,
		"ORDERS_DB_DSN_SET", config.OrdersDBDSN != "",
		"ORDERS_TABLE", config.OrdersTable,
		"PROVIDER_TIMEOUT", config.ProviderTimeout,
		"CORS_ALLOWED_ORIGINS", config.AllowedOrigins,
		"SESSION_TTL", config.SessionTTL,
		"SESSION_PRUNE_SCHEDULE", config.PruneSchedule)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) Flags {
	flags := Flags{
		openaiKey:       fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:     fs.String("model", config.OpenAIModel, "completion model identifier (overrides $OPENAI_MODEL)"),
		openaiBaseURL:   fs.String("openai-base-url", config.OpenAIBaseURL, "OpenAI-compatible API base URL (overrides $OPENAI_BASE_URL)"),
		apiAddr:         fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		ordersCSV:       fs.String("orders-csv", config.OrdersCSV, "CSV order file used when no database driver is set (overrides $ORDERS_CSV)"),
		ordersDBDriver:  fs.String("orders-db-driver", config.OrdersDBDriver, "order database driver: sqlite3 or postgres (overrides $ORDERS_DB_DRIVER)"),
		ordersDBDSN:     fs.String("orders-db-dsn", config.OrdersDBDSN, "order database DSN (overrides $ORDERS_DB_DSN)"),
		ordersTable:     fs.String("orders-table", config.OrdersTable, "order table name (overrides $ORDERS_TABLE)"),
		providerTimeout: fs.Duration("provider-timeout", config.ProviderTimeout, "completion call timeout (overrides $PROVIDER_TIMEOUT)"),
		allowedOrigins:  fs.String("cors-origins", strings.Join(config.AllowedOrigins, ","), "comma separated CORS origins (overrides $CORS_ALLOWED_ORIGINS)"),
		sessionTTL:      fs.Duration("session-ttl", config.SessionTTL, "idle time before a session's history is dropped, 0 disables (overrides $SESSION_TTL)"),
		pruneSchedule:   fs.String("session-prune-schedule", config.PruneSchedule, "cron schedule of the idle-session sweep (overrides $SESSION_PRUNE_SCHEDULE)"),
		debug:           fs.Bool("debug", config.Debug, "enable debug logging (overrides $SUPPORTPIPE_DEBUG)"),
	}

	if err := fs.Parse(args); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(2)
	}

	slog.Debug("flags parsed",
		"openaiKeySet", *flags.openaiKey != "",
		"model", *flags.openaiModel,
		"apiAddr", *flags.apiAddr,
		"ordersCSV", *flags.ordersCSV,
		"ordersDBDriver", *flags.ordersDBDriver,
		"ordersDBDSN_set", *flags.ordersDBDSN != "",
		"ordersTable", *flags.ordersTable,
		"providerTimeout", *flags.providerTimeout,
		"corsOrigins", *flags.allowedOrigins,
		"sessionTTL", *flags.sessionTTL,
		"pruneSchedule", *flags.pruneSchedule,
		"debug", *flags.debug)

	return flags
}

// buildStoreOptions constructs order store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.ordersDBDriver != "" {
		slog.Debug("Order database configured", "driver", *flags.ordersDBDriver, "dsn_set", *flags.ordersDBDSN != "", "table", *flags.ordersTable)
		storeOpts = append(storeOpts,
			store.WithDriver(*flags.ordersDBDriver),
			store.WithDSN(*flags.ordersDBDSN),
			store.WithTable(*flags.ordersTable))
	} else {
		slog.Debug("No order database driver set, using CSV order file", "path", *flags.ordersCSV)
		storeOpts = append(storeOpts, store.WithCSVPath(*flags.ordersCSV))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if *flags.openaiBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.openaiBaseURL))
	}
	if *flags.providerTimeout > 0 {
		genaiOpts = append(genaiOpts, genai.WithTimeout(*flags.providerTimeout))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if origins := util.SplitList(*flags.allowedOrigins); len(origins) > 0 {
		apiOpts = append(apiOpts, api.WithAllowedOrigins(origins...))
	}
	apiOpts = append(apiOpts, api.WithSessionTTL(*flags.sessionTTL))
	if *flags.pruneSchedule != "" {
		apiOpts = append(apiOpts, api.WithPruneSchedule(*flags.pruneSchedule))
	}
	return apiOpts
}
