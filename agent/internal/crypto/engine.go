// Package crypto owns the per-run session key and every cryptographic
// primitive the beacon uses: AES-256-CBC for message bodies, RSA-OAEP for
// key exchange, PBKDF2 for password keys and HMAC-SHA256 for integrity.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"beacon/agent/internal/fault"
	"beacon/agent/internal/logger"

	"github.com/google/uuid"
)

const (
	KeySize = 32
	ivSize  = aes.BlockSize

	DefaultRotation = time.Hour
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrBadPadding        = errors.New("invalid padding")
)

// Engine holds the session key. All methods are safe for concurrent use;
// rotation and the cipher operation run under one lock so a message is
// never produced with a key that is replaced halfway through.
type Engine struct {
	mu          sync.Mutex
	key         []byte
	createdAt   time.Time
	rotateAfter time.Duration
	sessionID   string

	now  func() time.Time
	rand io.Reader
}

type Option func(*Engine)

// WithRotation sets the rotation threshold. Non-positive values keep the default.
func WithRotation(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.rotateAfter = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		rotateAfter: DefaultRotation,
		sessionID:   hexUUID(),
		now:         time.Now,
		rand:        rand.Reader,
	}
	for _, o := range opts {
		o(e)
	}
	key, err := e.newKey()
	if err != nil {
		return nil, err
	}
	e.key = key
	e.createdAt = e.now()
	return e, nil
}

// SessionID is fixed for the lifetime of the engine.
func (e *Engine) SessionID() string { return e.sessionID }

// Key returns a copy of the current session key.
func (e *Engine) Key() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return bytes.Clone(e.key)
}

// SetKey adopts a key negotiated out of band and restarts the rotation clock.
func (e *Engine) SetKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("session key must be %d bytes, got %d", KeySize, len(key))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.key = bytes.Clone(key)
	e.createdAt = e.now()
	return nil
}

// RotateIfDue replaces the session key when the rotation threshold has
// elapsed. It reports whether a rotation happened.
func (e *Engine) RotateIfDue() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotateLocked()
}

func (e *Engine) rotateLocked() (bool, error) {
	now := e.now()
	if now.Sub(e.createdAt) <= e.rotateAfter {
		return false, nil
	}
	key, err := e.newKey()
	if err != nil {
		return false, err
	}
	e.key = key
	e.createdAt = now
	logger.Debugf("session key rotated, session=%s", e.sessionID)
	return true, nil
}

// Encrypt returns base64(IV || AES-256-CBC(PKCS7(plaintext))).
func (e *Engine) Encrypt(plaintext []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.rotateLocked(); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, ivSize+len(padded))
	iv := out[:ivSize]
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return "", fmt.Errorf("read iv: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[ivSize:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Every failure is a fault.KindDecryption error.
func (e *Engine) Decrypt(envelope string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.rotateLocked(); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envelope))
	if err != nil {
		return nil, fault.Decryption("decrypt", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err))
	}
	if len(raw) < ivSize+aes.BlockSize || (len(raw)-ivSize)%aes.BlockSize != 0 {
		return nil, fault.Decryption("decrypt", fmt.Errorf("%w: length %d", ErrMalformedEnvelope, len(raw)))
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fault.Decryption("decrypt", err)
	}
	iv, body := raw[:ivSize], raw[ivSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, fault.Decryption("decrypt", err)
	}
	return plain, nil
}

func (e *Engine) newKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(e.rand, key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// GenerateNonce returns a random, non-sequential token for anti-replay use.
func GenerateNonce() string { return hexUUID() }

func hexUUID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-n], nil
}
