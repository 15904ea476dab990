package protocolclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"beacon/agent/internal/fault"
	"beacon/agent/internal/transport"
)

// Codec turns a plaintext record into the opaque text body and back.
// *crypto.Engine satisfies it.
type Codec interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(body string) ([]byte, error)
}

// PlainCodec is used when encryption is disabled: bodies are only base64.
type PlainCodec struct{}

func (PlainCodec) Encrypt(plaintext []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(plaintext), nil
}

func (PlainCodec) Decrypt(body string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, fault.Decryption("decode", err)
	}
	return b, nil
}

type Client struct {
	tr    transport.Transport
	codec Codec
}

func New(tr transport.Transport, codec Codec) *Client {
	return &Client{tr: tr, codec: codec}
}

// Exchange seals req, sends it and opens the reply into resp.
func (c *Client) Exchange(ctx context.Context, req, resp any) error {
	plain, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	body, err := c.codec.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("seal request: %w", err)
	}
	raw, err := c.tr.Send(ctx, []byte(body))
	if err != nil {
		return err
	}
	opened, err := c.codec.Decrypt(string(raw))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(opened, resp); err != nil {
		return fault.Decryption("decode response", err)
	}
	return nil
}
