package beacon

import (
	"encoding/base64"
	"fmt"

	"beacon/agent/internal/command"
	"beacon/agent/internal/config"
	"beacon/agent/internal/crypto"
	"beacon/agent/internal/device"
	"beacon/agent/internal/logger"
	"beacon/agent/internal/protocolclient"
	"beacon/agent/internal/state"
	"beacon/agent/internal/transport"
)

// Setup performs the INIT step: collect identity, create the session
// engine when encryption is on, and wire transport and commands.
func Setup(cfg config.AppConfig) (*Controller, error) {
	agent := state.New(device.Collect())

	var codec protocolclient.Codec = protocolclient.PlainCodec{}
	if cfg.UseEncryption {
		engine, err := crypto.NewEngine(crypto.WithRotation(cfg.KeyRotation))
		if err != nil {
			return nil, err
		}
		if cfg.PSK != "" {
			key, err := base64.StdEncoding.DecodeString(cfg.PSK)
			if err != nil {
				return nil, fmt.Errorf("agent.psk: %w", err)
			}
			if err := engine.SetKey(key); err != nil {
				return nil, fmt.Errorf("agent.psk: %w", err)
			}
		}
		logger.Debugf("Session %s started, key rotation every %v", engine.SessionID(), cfg.KeyRotation)
		codec = engine
	} else {
		logger.Warn("Message encryption is disabled, bodies are only base64 encoded")
	}

	tr := transport.NewHTTP(transport.Options{
		URL:                cfg.ServerURL,
		Timeout:            cfg.Transport.Timeout,
		InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
		Headers:            cfg.Transport.Headers,
	})

	registry, err := command.NewRegistry(command.Builtins(agent.Stop)...)
	if err != nil {
		return nil, err
	}

	kd, err := ParseKillDate(cfg.KillDate)
	if err != nil {
		logger.Warnf("Kill date disabled, agent will not expire: %v", err)
	}

	return New(agent, protocolclient.New(tr, codec), registry, Options{
		Interval: cfg.CallbackInterval,
		KillDate: kd,
	}), nil
}
