package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/danualab/InterviewPipe/internal/api"
	"github.com/danualab/InterviewPipe/internal/bot"
	"github.com/danualab/InterviewPipe/internal/config"
	"github.com/danualab/InterviewPipe/internal/genai"
	"github.com/danualab/InterviewPipe/internal/lockfile"
	"github.com/danualab/InterviewPipe/internal/messaging"
	"github.com/danualab/InterviewPipe/internal/store"
	"github.com/danualab/InterviewPipe/internal/supervisor"
	"github.com/danualab/InterviewPipe/internal/twiliowhatsapp"
	"github.com/danualab/InterviewPipe/internal/util"
	"github.com/danualab/InterviewPipe/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for InterviewPipe state data
	DefaultStateDir = "/var/lib/interviewpipe"
	// DefaultDBFileName is the default SQLite database filename for the archive store
	DefaultDBFileName = "interviewpipe.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	env := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(env)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping InterviewPipe with configured modules")
	slog.Debug("Final configuration",
		"backend", *flags.backend,
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"api_addr", *flags.apiAddr,
		"admin_set", *flags.admin != "")
	if err := run(flags); err != nil {
		slog.Error("InterviewPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("InterviewPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	Backend       string
	TelegramToken string
	Admin         string
	StateDir      string
	DatabaseDSN   string
	APIKey        string
	BaseURL       string
	Model         string
	APIAddr       string
	BankPath      string
}

// Flags holds command line flag values
type Flags struct {
	backend       *string
	telegramToken *string
	admin         *string
	stateDir      *string
	dbDSN         *string
	apiKey        *string
	baseURL       *string
	model         *string
	apiAddr       *string
	bankPath      *string
	qrOutput      *string
	numeric       *bool
}

// initializeLogger sets up structured logging. INTERVIEWPIPE_DEBUG raises the
// level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("INTERVIEWPIPE_DEBUG", false) {
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

	env := Config{
		Backend:       os.Getenv("INTERVIEWPIPE_BACKEND"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Admin:         os.Getenv("ADMIN_CHAT_ID"),
		StateDir:      os.Getenv("INTERVIEWPIPE_STATE_DIR"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		APIKey:        os.Getenv("OPENROUTER_API_KEY"),
		BaseURL:       os.Getenv("OPENROUTER_BASE_URL"),
		Model:         os.Getenv("OPENROUTER_MODEL"),
		APIAddr:       os.Getenv("API_ADDR"),
		BankPath:      os.Getenv("INTERVIEWPIPE_BANK"),
	}

	// Legacy variable support
	if env.DatabaseDSN == "" {
		env.DatabaseDSN = os.Getenv("DATABASE_URL")
		if env.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as DATABASE_DSN", "dsn_set", true)
		}
	}

	if env.Backend == "" {
		env.Backend = messaging.BackendTelegram
	}

	// Set default state directory if not specified
	if env.StateDir == "" {
		env.StateDir = DefaultStateDir
		slog.Debug("No INTERVIEWPIPE_STATE_DIR set, using default", "default_state_dir", env.StateDir)
	} else {
		slog.Debug("INTERVIEWPIPE_STATE_DIR found in environment", "state_dir", env.StateDir)
	}

	// If no database DSN is provided, default to SQLite in the state directory
	if env.DatabaseDSN == "" {
		env.DatabaseDSN = filepath.Join(env.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", env.DatabaseDSN)
	}

	slog.Debug("environment variables loaded",
		"INTERVIEWPIPE_BACKEND", env.Backend,
		"TELEGRAM_BOT_TOKEN_SET", env.TelegramToken != "",
		"ADMIN_CHAT_ID_SET", env.Admin != "",
		"INTERVIEWPIPE_STATE_DIR", env.StateDir,
		"DATABASE_DSN_SET", env.DatabaseDSN != "",
		"OPENROUTER_API_KEY_SET", env.APIKey != "",
		"API_ADDR", env.APIAddr,
		"INTERVIEWPIPE_BANK", env.BankPath)

	return env
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(env Config) Flags {
	flags := Flags{
		backend:       flag.String("backend", env.Backend, "messaging backend: telegram, twilio, or whatsapp (overrides $INTERVIEWPIPE_BACKEND)"),
		telegramToken: flag.String("telegram-token", env.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		admin:         flag.String("admin", env.Admin, "recipient for analysis reports (overrides $ADMIN_CHAT_ID)"),
		stateDir:      flag.String("state-dir", env.StateDir, "state directory for InterviewPipe data (overrides $INTERVIEWPIPE_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", env.DatabaseDSN, "database DSN for the archive store (overrides $DATABASE_DSN or $DATABASE_URL)"),
		apiKey:        flag.String("api-key", env.APIKey, "completion API key (overrides $OPENROUTER_API_KEY)"),
		baseURL:       flag.String("base-url", env.BaseURL, "completion API base URL (overrides $OPENROUTER_BASE_URL)"),
		model:         flag.String("model", env.Model, "completion model (overrides $OPENROUTER_MODEL)"),
		apiAddr:       flag.String("api-addr", env.APIAddr, "operational API server address, empty disables (overrides $API_ADDR)"),
		bankPath:      flag.String("bank", env.BankPath, "question bank YAML file, empty uses the embedded bank (overrides $INTERVIEWPIPE_BANK)"),
		qrOutput:      flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:       flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"backend", *flags.backend,
		"telegramTokenSet", *flags.telegramToken != "",
		"admin", *flags.admin,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiKeySet", *flags.apiKey != "",
		"apiAddr", *flags.apiAddr,
		"bankPath", *flags.bankPath)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == env.DatabaseDSN && env.DatabaseDSN == filepath.Join(env.StateDir, DefaultDBFileName) && *flags.stateDir != env.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", env.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return err
	}
	return nil
}

// buildGenAIOptions constructs completion client configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.apiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.apiKey))
	}
	if *flags.baseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.baseURL))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	return genaiOpts
}

// buildStoreOptions constructs archive store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildMessagingService constructs the selected messaging backend. The second
// return value is non-nil only for the Twilio backend, whose inbound webhook
// must be mounted on the API server.
func buildMessagingService(flags Flags) (messaging.Service, *messaging.TwilioService, error) {
	switch *flags.backend {
	case messaging.BackendTelegram:
		svc, err := messaging.NewTelegramService(*flags.telegramToken)
		if err != nil {
			return nil, nil, err
		}
		return svc, nil, nil
	case messaging.BackendTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		svc := messaging.NewTwilioService(client)
		return svc, svc, nil
	case messaging.BackendWhatsApp:
		var waOpts []whatsapp.Option
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewWhatsAppService(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown messaging backend: %q", *flags.backend)
	}
}

// run assembles the modules and serves until interrupted.
func run(flags Flags) error {
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release state lock", "error", err)
		}
	}()

	bank, err := config.Load(*flags.bankPath)
	if err != nil {
		return err
	}

	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	st, err := store.NewStore(buildStoreOptions(flags)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()

	sup := supervisor.New(client, bank, st)

	svc, twilioSvc, err := buildMessagingService(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *flags.apiAddr != "" {
		var apiOpts []api.Option
		if twilioSvc != nil {
			apiOpts = append(apiOpts, api.WithTwilioWebhook(twilioSvc.TwilioWebhookHandler))
		}
		server := api.NewServer(*flags.apiAddr, sup, st, apiOpts...)
		go func() {
			if err := server.Run(ctx); err != nil {
				slog.Error("API server exited with error", "error", err)
			}
		}()
	} else if twilioSvc != nil {
		slog.Warn("Twilio backend selected without an API server, inbound webhook unavailable")
	}

	var botOpts []bot.Option
	if *flags.admin != "" {
		botOpts = append(botOpts, bot.WithAdminRecipient(*flags.admin))
	}
	b := bot.New(svc, sup, botOpts...)

	err = b.Run(ctx)
	if stopErr := svc.Stop(); stopErr != nil {
		slog.Warn("Failed to stop messaging service", "error", stopErr)
	}
	return err
}
