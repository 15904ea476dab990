package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeMAC returns base64(HMAC-SHA256(key, data)). A nil key means the
// current session key.
func (e *Engine) ComputeMAC(data, key []byte) string {
	if key == nil {
		key = e.Key()
	}
	return base64.StdEncoding.EncodeToString(sum(key, data))
}

// VerifyMAC reports whether tag authenticates data. Malformed tags are
// simply a mismatch.
func (e *Engine) VerifyMAC(data []byte, tag string, key []byte) bool {
	want, err := base64.StdEncoding.DecodeString(tag)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	if key == nil {
		key = e.Key()
	}
	return hmac.Equal(sum(key, data), want)
}

func sum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
