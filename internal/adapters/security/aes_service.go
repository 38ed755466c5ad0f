package security

import (
	"Onboarding/internal/core/ports"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// keyIDSize is the length of the key fingerprint prefixed to every
// ciphertext, so rows sealed before a key rotation stay readable.
const keyIDSize = 4

var ErrUnknownKey = errors.New("ciphertext was sealed with an unknown key")

type sealingKey struct {
	id  [keyIDSize]byte
	gcm cipher.AEAD
}

// aesService implements ports.SecurityPort with AES-GCM. The output layout
// is keyID || nonce || sealed.
type aesService struct {
	current  sealingKey
	previous []sealingKey
	log      zerolog.Logger
}

var _ ports.SecurityPort = (*aesService)(nil)

// NewAESService seals with encryptionKey and additionally opens data sealed
// with any of the previous keys. Keys are 16 or 32 bytes.
func NewAESService(encryptionKey []byte, baseLogger *zerolog.Logger, previous ...[]byte) (ports.SecurityPort, error) {
	current, err := newSealingKey(encryptionKey)
	if err != nil {
		return nil, err
	}
	s := &aesService{
		current: current,
		log:     baseLogger.With().Str("component", "security_service").Logger(),
	}
	for i, raw := range previous {
		k, err := newSealingKey(raw)
		if err != nil {
			return nil, fmt.Errorf("previous key %d: %w", i, err)
		}
		s.previous = append(s.previous, k)
	}

	s.log.Info().Int("previous_keys", len(s.previous)).Msg("Security service initialized")
	return s, nil
}

// NewAESServiceFromHex decodes hex keys as found in ENCRYPTION_KEY and
// ENCRYPTION_KEY_PREVIOUS. Empty previous keys are skipped.
func NewAESServiceFromHex(hexKey string, baseLogger *zerolog.Logger, previousHex ...string) (ports.SecurityPort, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	var previous [][]byte
	for _, h := range previousHex {
		if h == "" {
			continue
		}
		k, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("previous encryption key is not valid hex: %w", err)
		}
		previous = append(previous, k)
	}
	return NewAESService(key, baseLogger, previous...)
}

func newSealingKey(raw []byte) (sealingKey, error) {
	if len(raw) != 16 && len(raw) != 32 {
		return sealingKey{}, errors.New("encryption key must be 16 or 32 bytes")
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return sealingKey{}, fmt.Errorf("could not create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return sealingKey{}, fmt.Errorf("could not create GCM: %w", err)
	}
	sum := sha256.Sum256(raw)
	k := sealingKey{gcm: gcm}
	copy(k.id[:], sum[:keyIDSize])
	return k, nil
}

// Encrypt seals plaintext with the current key. associatedData is
// authenticated but not stored.
func (s *aesService) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	gcm := s.current.gcm
	out := make([]byte, keyIDSize+gcm.NonceSize(), keyIDSize+gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	copy(out, s.current.id[:])

	nonce := out[keyIDSize:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		s.log.Error().Err(err).Msg("Failed to generate nonce")
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}
	return gcm.Seal(out, nonce, plaintext, associatedData), nil
}

// Decrypt opens data sealed by Encrypt under any known key with the same
// associatedData.
func (s *aesService) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	if len(ciphertext) < keyIDSize {
		return nil, errors.New("ciphertext is too short")
	}
	key, ok := s.keyFor(ciphertext[:keyIDSize])
	if !ok {
		return nil, ErrUnknownKey
	}

	body := ciphertext[keyIDSize:]
	nonceSize := key.gcm.NonceSize()
	if len(body) < nonceSize {
		return nil, errors.New("ciphertext is too short")
	}
	plaintext, err := key.gcm.Open(nil, body[:nonceSize], body[nonceSize:], associatedData)
	if err != nil {
		// tampered data or a mismatched owner
		s.log.Warn().Err(err).Msg("Failed to decrypt ciphertext")
		return nil, fmt.Errorf("could not decrypt: %w", err)
	}
	return plaintext, nil
}

func (s *aesService) keyFor(id []byte) (sealingKey, bool) {
	if string(id) == string(s.current.id[:]) {
		return s.current, true
	}
	for _, k := range s.previous {
		if string(id) == string(k.id[:]) {
			return k, true
		}
	}
	return sealingKey{}, false
}
