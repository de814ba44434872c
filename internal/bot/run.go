package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qaaqit/Qaaq1234-sub001/internal/clarify"
	"github.com/qaaqit/Qaaq1234-sub001/internal/flow"
	"github.com/qaaqit/Qaaq1234-sub001/internal/genai"
	"github.com/qaaqit/Qaaq1234-sub001/internal/lockfile"
	"github.com/qaaqit/Qaaq1234-sub001/internal/messaging"
	"github.com/qaaqit/Qaaq1234-sub001/internal/quota"
	"github.com/qaaqit/Qaaq1234-sub001/internal/scheduler"
	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
	"github.com/qaaqit/Qaaq1234-sub001/internal/whatsapp"
)

// Config holds the runtime configuration, populated from environment
// variables (with .env support) and optionally overridden by flags.
type Config struct {
	// DatabaseURL is the DSN for conversation state, quota and message log
	// storage. SQLite and PostgreSQL are detected from its shape.
	DatabaseURL string `env:"DATABASE_URL"`
	// WhatsAppDBDSN is the whatsmeow session store DSN. Falls back to
	// DatabaseURL when empty, then to the built-in SQLite default.
	WhatsAppDBDSN    string `env:"WHATSAPP_DB_DSN"`
	WhatsAppDBDriver string `env:"WHATSAPP_DB_DRIVER"`
	QRCodeOutput     string `env:"QR_CODE_OUTPUT"`
	NumericCode      bool   `env:"NUMERIC_CODE"`

	// Transport selects the messaging backend: "whatsapp" or "twilio".
	Transport        string `env:"QAAQ_TRANSPORT" envDefault:"whatsapp"`
	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`

	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIModel   string        `env:"OPENAI_MODEL"`
	AnswerTimeout time.Duration `env:"QAAQ_ANSWER_TIMEOUT" envDefault:"30s"`

	// Timezone governs the daily quota rollover boundary.
	Timezone string `env:"QAAQ_TIMEZONE" envDefault:"UTC"`

	// StateDir holds the instance lock and default local databases.
	StateDir string `env:"QAAQ_STATE_DIR" envDefault:"/var/lib/qaaqbot"`
}

// Run wires every module together and blocks until SIGINT or SIGTERM.
func Run(cfg Config) error {
	// A second instance on the same state directory would double-consume
	// quota and corrupt the WhatsApp session.
	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to lock state directory: %w", err)
	}
	defer lock.Release()

	st, err := openStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid QAAQ_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	llm, err := genai.NewClient(
		genai.WithAPIKey(cfg.OpenAIKey),
		genai.WithModel(cfg.OpenAIModel),
		genai.WithTimeout(cfg.AnswerTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	msg, err := buildMessagingService(cfg)
	if err != nil {
		return fmt.Errorf("failed to create messaging service: %w", err)
	}

	tracker := quota.NewTracker(st, loc)
	cm := clarify.NewManager(st)
	router := flow.NewRouter(tracker, cm, llm, msg)
	orch := New(st, msg, router, cm)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddClarificationSweep(st); err != nil {
		return fmt.Errorf("failed to schedule clarification sweep: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := msg.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	defer func() {
		if err := msg.Stop(); err != nil {
			slog.Error("Messaging service stop failed", "error", err)
		}
	}()

	orch.Start(ctx)
	slog.Info("Bot running", "transport", cfg.Transport, "timezone", cfg.Timezone)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("Shutting down", "signal", s.String())
	cancel()
	return nil
}

// openStore selects a store backend from the DSN shape. An empty DSN gets an
// in-memory store, which loses all state on restart and is only suitable for
// local experiments.
func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(dsn) {
	case "postgres":
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	default:
		return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
	}
}

func buildMessagingService(cfg Config) (messaging.Service, error) {
	switch cfg.Transport {
	case "twilio":
		return messaging.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	case "whatsapp", "":
		var waOpts []whatsapp.Option
		if dsn := cfg.WhatsAppDBDSN; dsn != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(dsn))
		} else if cfg.DatabaseURL != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(cfg.DatabaseURL))
		}
		if cfg.WhatsAppDBDriver != "" {
			waOpts = append(waOpts, whatsapp.WithDBDriver(cfg.WhatsAppDBDriver))
		}
		if cfg.QRCodeOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(cfg.QRCodeOutput))
		}
		if cfg.NumericCode {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
