package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// MinRSABits is the smallest modulus accepted for key exchange.
const MinRSABits = 2048

// GenerateKeypair creates an RSA key pair for one-shot key exchange.
func GenerateKeypair(bits int) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if bits < MinRSABits {
		return nil, nil, fmt.Errorf("rsa modulus %d below minimum %d", bits, MinRSABits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	return priv, &priv.PublicKey, nil
}

func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
}

func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// EncryptWithPublicKey seals a short secret with RSA-OAEP/SHA-256 and
// returns it base64 encoded. Not meant for bulk data.
func EncryptWithPublicKey(plaintext, publicPEM []byte) (string, error) {
	pub, err := parsePublicKey(publicPEM)
	if err != nil {
		return "", err
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("oaep encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptWithPrivateKey opens a value produced by EncryptWithPublicKey.
// password is only needed for an encrypted PEM block.
func DecryptWithPrivateKey(ciphertext string, privatePEM, password []byte) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	priv, err := parsePrivateKey(privatePEM, password)
	if err != nil {
		return nil, err
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("oaep decrypt: %w", err)
	}
	return plain, nil
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	}
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported public key type %T", key)
	}
	return pub, nil
}

func parsePrivateKey(data, password []byte) (*rsa.PrivateKey, error) {
	var (
		key any
		err error
	)
	if len(password) > 0 {
		key, err = ssh.ParseRawPrivateKeyWithPassphrase(data, password)
	} else {
		key, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	return priv, nil
}
