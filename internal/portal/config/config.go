package config

import (
	"log"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
// See .env.example for more documentation
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	Version       string `env:"VERSION" envDefault:"dev"`

	// SSHConnectTimeout bounds the session handshake; remote commands
	// themselves carry no timeout.
	SSHConnectTimeout time.Duration `env:"SSH_CONNECT_TIMEOUT" envDefault:"10s"`

	// EngineInstallScriptURL is the vendor script used by the generic
	// bootstrap fallback when no supported package manager is detected.
	EngineInstallScriptURL string `env:"ENGINE_INSTALL_SCRIPT_URL" envDefault:"https://get.docker.com"`

	Verbose bool `env:"VERBOSE" envDefault:"false"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}
	var cfg Config
	err = env.ParseWithOptions(&cfg, env.Options{
		Prefix: "DEPLOY_PORTAL_",
	})
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return &cfg
}
