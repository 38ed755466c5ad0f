package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDev        = "dev"
	EnvProduction = "production"

	SMSProviderLog    = "log"
	SMSProviderTwilio = "twilio"
)

// OTPPolicy is the code shape for one (actor kind, purpose) pair.
type OTPPolicy struct {
	Length int
	Expiry time.Duration
}

type OTPConfig struct {
	// Policies is keyed by "<kind>_<purpose>", e.g. "merchant_login".
	Policies       map[string]OTPPolicy
	LeadingZeros   bool
	MaxAttempts    int
	ResendDelay    time.Duration
	ReturnToClient bool
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type TelegramConfig struct {
	BotToken  string
	ChannelID int64
}

// Enabled reports whether the ops notifier should run.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChannelID != 0
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	LogLevel      string
	DatabaseURL   string
	EncryptionKey string

	// EncryptionKeyPrevious still opens payloads sealed before a rotation.
	EncryptionKeyPrevious string

	JWT JWTConfig
	OTP OTPConfig

	SessionTTL    time.Duration
	SweepInterval time.Duration

	// PhoneCountryCode turns national numbers into E.164 keys, e.g. "+966".
	PhoneCountryCode string

	SMSProvider string
	Twilio      TwilioConfig
	Telegram    TelegramConfig

	UploadDir     string
	DefaultLocale string
}

// IsDev reports whether human-readable logging and dev-only features apply.
func (c *Config) IsDev() bool {
	return c.AppEnv == EnvDev
}

var otpKinds = []string{"customer", "merchant"}

// bindings maps viper keys to environment variable names.
func bindings() map[string]string {
	b := map[string]string{
		"app.env":                  "APP_ENV",
		"log.level":                "LOG_LEVEL",
		"database.url":             "DATABASE_URL",
		"encryption.key":           "ENCRYPTION_KEY",
		"encryption.key_previous":  "ENCRYPTION_KEY_PREVIOUS",
		"jwt.secret":               "JWT_SECRET",
		"jwt.issuer":               "JWT_ISSUER",
		"jwt.ttl":                  "JWT_TTL",
		"otp.return_to_client":     "OTP_RETURN_TO_CLIENT",
		"otp.leading_zeros":        "OTP_LEADING_ZEROS",
		"otp.max_attempts":         "OTP_MAX_ATTEMPTS",
		"otp.resend_delay":         "OTP_RESEND_DELAY",
		"registration.session_ttl": "REGISTRATION_SESSION_TTL",
		"sweep.interval":           "SWEEP_INTERVAL",
		"phone.country_code":       "PHONE_COUNTRY_CODE",
		"sms.provider":             "SMS_PROVIDER",
		"twilio.account_sid":       "TWILIO_ACCOUNT_SID",
		"twilio.auth_token":        "TWILIO_AUTH_TOKEN",
		"twilio.from":              "TWILIO_FROM",
		"telegram.bot_token":       "TELEGRAM_BOT_TOKEN",
		"telegram.channel_id":      "TELEGRAM_CHANNEL_ID",
		"upload.dir":               "UPLOAD_DIR",
		"locale.default":           "DEFAULT_LOCALE",
	}
	for _, kind := range otpKinds {
		for _, purpose := range []string{"registration", "login"} {
			key := kind + "_" + purpose
			env := "OTP_" + strings.ToUpper(key)
			b["otp."+key+".length"] = env + "_LENGTH"
			b["otp."+key+".expiry"] = env + "_EXPIRY"
		}
	}
	return b
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", EnvDev)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "onboarding")
	v.SetDefault("jwt.ttl", "720h")
	v.SetDefault("otp.return_to_client", false)
	v.SetDefault("otp.leading_zeros", true)
	v.SetDefault("otp.max_attempts", 3)
	v.SetDefault("otp.resend_delay", "60s")
	v.SetDefault("registration.session_ttl", "24h")
	v.SetDefault("sweep.interval", "0s")
	v.SetDefault("sms.provider", SMSProviderLog)
	v.SetDefault("phone.country_code", "+966")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("locale.default", "en")
	for _, kind := range otpKinds {
		v.SetDefault("otp."+kind+"_registration.length", 4)
		v.SetDefault("otp."+kind+"_registration.expiry", "10m")
		v.SetDefault("otp."+kind+"_login.length", 4)
		v.SetDefault("otp."+kind+"_login.expiry", "5m")
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// 1. Load .env file into the process environment. A missing file is
	// fine; the OS environment is used as is.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// 2. Explicitly bind viper keys to env var names
	v := viper.New()
	for key, env := range bindings() {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults
	setDefaults(v)

	// 4. Get values from viper
	cfg := Config{
		AppEnv:                strings.ToLower(v.GetString("app.env")),
		LogLevel:              v.GetString("log.level"),
		DatabaseURL:           v.GetString("database.url"),
		EncryptionKey:         v.GetString("encryption.key"),
		EncryptionKeyPrevious: v.GetString("encryption.key_previous"),
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		OTP: OTPConfig{
			Policies:       make(map[string]OTPPolicy),
			LeadingZeros:   v.GetBool("otp.leading_zeros"),
			MaxAttempts:    v.GetInt("otp.max_attempts"),
			ResendDelay:    v.GetDuration("otp.resend_delay"),
			ReturnToClient: v.GetBool("otp.return_to_client"),
		},
		SessionTTL:       v.GetDuration("registration.session_ttl"),
		SweepInterval:    v.GetDuration("sweep.interval"),
		PhoneCountryCode: strings.TrimSpace(v.GetString("phone.country_code")),
		SMSProvider:      strings.ToLower(v.GetString("sms.provider")),
		Twilio: TwilioConfig{
			AccountSID: v.GetString("twilio.account_sid"),
			AuthToken:  v.GetString("twilio.auth_token"),
			From:       v.GetString("twilio.from"),
		},
		Telegram: TelegramConfig{
			BotToken:  v.GetString("telegram.bot_token"),
			ChannelID: v.GetInt64("telegram.channel_id"),
		},
		UploadDir:     v.GetString("upload.dir"),
		DefaultLocale: v.GetString("locale.default"),
	}
	for _, kind := range otpKinds {
		for _, purpose := range []string{"registration", "login"} {
			key := kind + "_" + purpose
			cfg.OTP.Policies[key] = OTPPolicy{
				Length: v.GetInt("otp." + key + ".length"),
				Expiry: v.GetDuration("otp." + key + ".expiry"),
			}
		}
	}

	// 5. Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules. Every problem is reported at once.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.EncryptionKey == "":
		errs = append(errs, errors.New("ENCRYPTION_KEY is not set in environment or .env file"))
	case len(c.EncryptionKey) != 64:
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey)))
	default:
		if _, err := hex.DecodeString(c.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err))
		}
	}

	if c.EncryptionKeyPrevious != "" {
		if _, err := hex.DecodeString(c.EncryptionKeyPrevious); err != nil || len(c.EncryptionKeyPrevious) != 64 {
			errs = append(errs, errors.New("ENCRYPTION_KEY_PREVIOUS must be a 64-character hex string"))
		}
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AppEnv == EnvProduction && c.OTP.ReturnToClient {
		errs = append(errs, errors.New("OTP_RETURN_TO_CLIENT must not be enabled in production"))
	}
	if c.OTP.MaxAttempts < 0 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must not be negative"))
	}
	for key, p := range c.OTP.Policies {
		if p.Length < 4 || p.Length > 6 {
			errs = append(errs, fmt.Errorf("OTP_%s_LENGTH must be between 4 and 6, got %d", strings.ToUpper(key), p.Length))
		}
		if p.Expiry <= 0 {
			errs = append(errs, fmt.Errorf("OTP_%s_EXPIRY must be positive", strings.ToUpper(key)))
		}
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("REGISTRATION_SESSION_TTL must be positive"))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must not be negative"))
	}
	if c.PhoneCountryCode != "" && !validCountryCode(c.PhoneCountryCode) {
		errs = append(errs, fmt.Errorf("PHONE_COUNTRY_CODE must look like +966, got %q", c.PhoneCountryCode))
	}

	switch c.SMSProvider {
	case SMSProviderLog:
	case SMSProviderTwilio:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.From == "" {
			errs = append(errs, errors.New("SMS_PROVIDER=twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SMS_PROVIDER %q", c.SMSProvider))
	}

	return errors.Join(errs...)
}

func validCountryCode(cc string) bool {
	digits, ok := strings.CutPrefix(cc, "+")
	if !ok || len(digits) < 1 || len(digits) > 3 || digits[0] == '0' {
		return false
	}
	return strings.Trim(digits, "0123456789") == ""
}
