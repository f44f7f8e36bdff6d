package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DatabaseDSN string
	Dev         bool
}

// Load reads .env if present, then the environment. An empty DATABASE_URL
// means run on the in-memory ledger (dev/demo only, nothing survives a
// restart).
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        ":8080",
		DatabaseDSN: os.Getenv("DATABASE_URL"),
		Dev:         os.Getenv("ENV") != "production",
	}
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	return cfg
}
