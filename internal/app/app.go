package app

import (
	"Onboarding/internal/adapters/eventbus"
	"Onboarding/internal/adapters/memory"
	"Onboarding/internal/adapters/payment"
	"Onboarding/internal/adapters/postgres"
	"Onboarding/internal/adapters/security"
	"Onboarding/internal/adapters/sms"
	"Onboarding/internal/adapters/storage"
	"Onboarding/internal/adapters/telegram"
	"Onboarding/internal/core/domain"
	"Onboarding/internal/core/ports"
	"Onboarding/internal/core/services/otp"
	"Onboarding/internal/core/services/registration"
	"Onboarding/internal/core/services/sweeper"
	"Onboarding/internal/shared/config"
	"Onboarding/internal/shared/i18n"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired registration services and their background workers.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	Tx         ports.TxManager
	OTP        *otp.Service
	Stepwise   *registration.StepwiseRegistration
	SingleShot *registration.SingleShotRegistration
	Sessions   *registration.SessionRegistration
	Translator *i18n.Translator
	Bus        *eventbus.InMemoryEventBus

	sweeper *sweeper.Sweeper
	closers []func()
}

type options struct {
	sms       ports.SMSSender
	botClient ports.BotClientPort
	fs        afero.Fs
	clock     ports.Clock
}

// Option overrides an adapter that New would otherwise build from config.
type Option func(*options)

func WithSMSSender(s ports.SMSSender) Option { return func(o *options) { o.sms = s } }

func WithBotClient(c ports.BotClientPort) Option { return func(o *options) { o.botClient = c } }

// WithFs stores uploads on fs instead of UPLOAD_DIR.
func WithFs(fs afero.Fs) Option { return func(o *options) { o.fs = fs } }

func WithClock(c ports.Clock) Option { return func(o *options) { o.clock = c } }

// New wires every adapter and service from cfg. An empty DATABASE_URL
// selects the in-memory store.
func New(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	a := &App{
		cfg: cfg,
		log: baseLogger.With().Str("component", "app").Logger(),
	}

	// 1. Security
	secSvc, err := security.NewAESServiceFromHex(cfg.EncryptionKey, baseLogger, cfg.EncryptionKeyPrevious)
	if err != nil {
		return nil, fmt.Errorf("security service: %w", err)
	}
	tokens, err := security.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, baseLogger)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	phones, err := domain.NewPhoneNormalizer(cfg.PhoneCountryCode)
	if err != nil {
		return nil, fmt.Errorf("phone numbers: %w", err)
	}

	// 2. Storage backend
	if cfg.DatabaseURL == "" {
		a.log.Warn().Msg("DATABASE_URL is empty, using the in-memory store")
		a.Tx = memory.NewStore(baseLogger)
	} else {
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, secSvc, baseLogger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.Tx = db
		a.closers = append(a.closers, db.Close)
	}

	// 3. Outbound adapters
	smsSender := o.sms
	if smsSender == nil {
		if smsSender, err = newSMSSender(cfg, baseLogger); err != nil {
			a.Close()
			return nil, err
		}
	}

	var files ports.FileStorage
	if o.fs != nil {
		files = storage.NewFileStoreFs(o.fs, baseLogger)
	} else if files, err = storage.NewFileStore(cfg.UploadDir, baseLogger); err != nil {
		a.Close()
		return nil, fmt.Errorf("file storage: %w", err)
	}

	a.Bus = eventbus.NewInMemoryEventBus(baseLogger)
	if err := a.wireNotifier(o.botClient, baseLogger); err != nil {
		a.Close()
		return nil, err
	}

	// 4. Services
	a.OTP = otp.NewService(a.Tx, smsSender, otpConfig(cfg.OTP, phones), baseLogger, otp.WithClock(o.clock))
	deps := registration.Deps{
		Tx:       a.Tx,
		OTP:      a.OTP,
		Tokens:   tokens,
		Storage:  files,
		Payments: payment.NewSimulatedGateway(o.clock, baseLogger),
		Bus:      a.Bus,
		Clock:    o.clock,
	}
	a.Stepwise = registration.NewStepwiseRegistration(deps, baseLogger)
	a.SingleShot = registration.NewSingleShotRegistration(deps, baseLogger)
	a.Sessions = registration.NewSessionRegistration(deps, cfg.SessionTTL, baseLogger)
	a.Translator = i18n.New(cfg.DefaultLocale)
	a.sweeper = sweeper.New(a.Tx, o.clock, baseLogger)

	a.log.Info().
		Str("app_env", cfg.AppEnv).
		Str("sms_provider", cfg.SMSProvider).
		Bool("notifier", cfg.Telegram.Enabled() || o.botClient != nil).
		Msg("All services initialized successfully")
	return a, nil
}

// Pending returns the registration flow used for kind when the caller asks
// for the stepwise or single-shot variant.
func (a *App) Pending(kind domain.ActorKind, stepwise bool) registration.PendingRegistration {
	if stepwise && kind == domain.ActorMerchant {
		return a.Stepwise
	}
	return a.SingleShot
}

// Run blocks until ctx is cancelled, sweeping expired rows when enabled,
// then waits for in-flight event handlers.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sweeper.Run(ctx, a.cfg.SweepInterval)
	}()

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Bus.Wait(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("Event handlers still running at shutdown")
	}
	a.log.Info().Msg("Shutdown complete")
	return nil
}

// Close releases the database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) wireNotifier(client ports.BotClientPort, baseLogger *zerolog.Logger) error {
	if client == nil {
		if !a.cfg.Telegram.Enabled() {
			return nil
		}
		var err error
		client, err = telegram.Connect(a.cfg.Telegram.BotToken, a.cfg.IsDev(), baseLogger)
		if err != nil {
			return err
		}
	}
	telegram.NewNotifier(client, a.cfg.Telegram.ChannelID, baseLogger).Subscribe(a.Bus)
	return nil
}

func newSMSSender(cfg *config.Config, baseLogger *zerolog.Logger) (ports.SMSSender, error) {
	if cfg.SMSProvider == config.SMSProviderTwilio {
		s, err := sms.NewTwilioSender(sms.TwilioConfig{
			AccountSID:  cfg.Twilio.AccountSID,
			AuthToken:   cfg.Twilio.AuthToken,
			From:        cfg.Twilio.From,
			CountryCode: cfg.PhoneCountryCode,
		}, baseLogger)
		if err != nil {
			return nil, fmt.Errorf("sms sender: %w", err)
		}
		return s, nil
	}
	return sms.NewLogSender(baseLogger), nil
}

func otpConfig(c config.OTPConfig, phones domain.PhoneNormalizer) otp.Config {
	out := otp.DefaultConfig()
	out.Phones = phones
	out.LeadingZeros = c.LeadingZeros
	out.MaxAttempts = c.MaxAttempts
	out.ResendDelay = c.ResendDelay
	out.ReturnCodeToClient = c.ReturnToClient
	for _, kind := range domain.ActorKinds {
		for _, purpose := range domain.Purposes {
			p, ok := c.Policies[string(kind)+"_"+string(purpose)]
			if !ok {
				continue
			}
			out.SetPolicy(kind, purpose, otp.Policy{Length: p.Length, TTL: p.Expiry})
		}
	}
	return out
}
