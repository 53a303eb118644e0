package config

import (
	"encoding/base64"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
}

// Env holds the raw environment settings, typically loaded from a .env
// file before the process parses its flags.
type Env struct {
	ServerAddr     string   `envconfig:"SERVER_ADDR" default:"localhost:8000"`
	DatabaseDSN    string   `envconfig:"DATABASE_DSN" default:"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"`
	SigningSecret  string   `envconfig:"SIGNING_SECRET"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

func ReadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("gosocial", &e); err != nil {
		return Env{}, fmt.Errorf("process env: %w", err)
	}

	return e, nil
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
	}, nil
}
