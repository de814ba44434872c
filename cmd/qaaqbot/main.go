package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/qaaqit/Qaaq1234-sub001/internal/bot"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	cfg, err := loadEnvironmentConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Parse command line flags, overriding the environment
	applyCommandLineFlags(&cfg)

	slog.Info("Bootstrapping QaaqBot with configured modules")
	slog.Debug("Final configuration",
		"transport", cfg.Transport,
		"dsn_set", cfg.DatabaseURL != "",
		"timezone", cfg.Timezone,
		"answer_timeout", cfg.AnswerTimeout)
	if err := bot.Run(cfg); err != nil {
		slog.Error("QaaqBot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("QaaqBot exited successfully")
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from the environment and an
// optional .env file.
func loadEnvironmentConfig() (bot.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	var cfg bot.Config
	if err := env.Parse(&cfg); err != nil {
		return bot.Config{}, err
	}
	return cfg, nil
}

// applyCommandLineFlags overrides environment configuration with any flags
// set on the command line.
func applyCommandLineFlags(cfg *bot.Config) {
	dbDSN := flag.String("db-dsn", "", "database DSN for conversation state (overrides DATABASE_URL)")
	waDSN := flag.String("wa-db-dsn", "", "whatsmeow session store DSN (overrides WHATSAPP_DB_DSN)")
	qrOutput := flag.String("qr-output", "", "file path for WhatsApp QR code output (default: stdout)")
	numeric := flag.Bool("numeric-code", false, "use numeric login code instead of QR code")
	transport := flag.String("transport", "", "messaging transport: whatsapp or twilio")
	openaiKey := flag.String("openai-api-key", "", "OpenAI API key (overrides OPENAI_API_KEY)")
	timezone := flag.String("timezone", "", "IANA timezone for daily quota rollover (overrides QAAQ_TIMEZONE)")
	answerTimeout := flag.Duration("answer-timeout", 0, "per-question LLM timeout (overrides QAAQ_ANSWER_TIMEOUT)")
	flag.Parse()

	if *dbDSN != "" {
		cfg.DatabaseURL = *dbDSN
	}
	if *waDSN != "" {
		cfg.WhatsAppDBDSN = *waDSN
	}
	if *qrOutput != "" {
		cfg.QRCodeOutput = *qrOutput
	}
	if *numeric {
		cfg.NumericCode = true
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *openaiKey != "" {
		cfg.OpenAIKey = *openaiKey
	}
	if *timezone != "" {
		cfg.Timezone = *timezone
	}
	if *answerTimeout > time.Duration(0) {
		cfg.AnswerTimeout = *answerTimeout
	}
}
