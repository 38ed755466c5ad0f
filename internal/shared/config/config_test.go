package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", testKey)
	t.Setenv("JWT_SECRET", "s3cret")
	// Empty values fall back to defaults.
	for _, env := range []string{"APP_ENV", "DATABASE_URL", "ENCRYPTION_KEY_PREVIOUS", "PHONE_COUNTRY_CODE", "SMS_PROVIDER", "OTP_RETURN_TO_CLIENT", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHANNEL_ID"} {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "onboarding", cfg.JWT.Issuer)
	assert.Equal(t, 720*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.OTP.ResendDelay)
	assert.True(t, cfg.OTP.LeadingZeros)
	assert.False(t, cfg.OTP.ReturnToClient)
	assert.Equal(t, OTPPolicy{Length: 4, Expiry: 10 * time.Minute}, cfg.OTP.Policies["merchant_registration"])
	assert.Equal(t, OTPPolicy{Length: 4, Expiry: 5 * time.Minute}, cfg.OTP.Policies["customer_login"])
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, "+966", cfg.PhoneCountryCode)
	assert.Equal(t, SMSProviderLog, cfg.SMSProvider)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "en", cfg.DefaultLocale)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OTP_MERCHANT_LOGIN_LENGTH", "6")
	t.Setenv("OTP_MERCHANT_LOGIN_EXPIRY", "2m")
	t.Setenv("OTP_MAX_ATTEMPTS", "0")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-100200300")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, OTPPolicy{Length: 6, Expiry: 2 * time.Minute}, cfg.OTP.Policies["merchant_login"])
	assert.Equal(t, OTPPolicy{Length: 4, Expiry: 5 * time.Minute}, cfg.OTP.Policies["customer_login"])
	assert.Zero(t, cfg.OTP.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, int64(-100200300), cfg.Telegram.ChannelID)
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": ""},
			wantErr: "ENCRYPTION_KEY is not set",
		},
		{
			name:    "short encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": "abcd"},
			wantErr: "64-character",
		},
		{
			name:    "non-hex encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": strings.Repeat("z", 64)},
			wantErr: "not valid hex",
		},
		{
			name:    "bad previous encryption key",
			env:     map[string]string{"ENCRYPTION_KEY_PREVIOUS": "abcd"},
			wantErr: "ENCRYPTION_KEY_PREVIOUS",
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "code returned to client in production",
			env:     map[string]string{"APP_ENV": "production", "OTP_RETURN_TO_CLIENT": "true"},
			wantErr: "OTP_RETURN_TO_CLIENT",
		},
		{
			name:    "code length out of range",
			env:     map[string]string{"OTP_CUSTOMER_REGISTRATION_LENGTH": "8"},
			wantErr: "OTP_CUSTOMER_REGISTRATION_LENGTH must be between 4 and 6",
		},
		{
			name:    "malformed phone country code",
			env:     map[string]string{"PHONE_COUNTRY_CODE": "966"},
			wantErr: "PHONE_COUNTRY_CODE must look like +966",
		},
		{
			name:    "twilio without credentials",
			env:     map[string]string{"SMS_PROVIDER": "twilio"},
			wantErr: "requires TWILIO_ACCOUNT_SID",
		},
		{
			name:    "unknown sms provider",
			env:     map[string]string{"SMS_PROVIDER": "pigeon"},
			wantErr: `unknown SMS_PROVIDER "pigeon"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_ReturnToClientAllowedInDev(t *testing.T) {
	setRequired(t)
	t.Setenv("OTP_RETURN_TO_CLIENT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.OTP.ReturnToClient)
}
