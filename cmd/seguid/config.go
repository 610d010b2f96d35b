package main

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// serverConfig holds server settings from the environment.
// Flags override them.
type serverConfig struct {
	Addr         string        `env:"SEGUID_ADDR"          env-default:":8080"`
	GRPCAddr     string        `env:"SEGUID_GRPC_ADDR"`
	JWTKey       string        `env:"SEGUID_JWT_KEY"`
	AsyncTimeout time.Duration `env:"SEGUID_ASYNC_TIMEOUT" env-default:"30s"`
}

func loadServerConfig() (serverConfig, error) {
	var cfg serverConfig
	err := cleanenv.ReadEnv(&cfg)
	return cfg, errors.Wrap(err, "reading environment")
}
