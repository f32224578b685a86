/*
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config of the chaincode process
type Config struct {
	// CCID assigned by the peer, enables chaincode-as-a-service mode when set
	ChaincodeID   string `env:"CHAINCODE_ID"`
	ServerAddress string `env:"CHAINCODE_SERVER_ADDRESS" envDefault:"0.0.0.0:9999"`
	HealthPort    string `env:"HEALTH_PORT" envDefault:"8080"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogFile       string `env:"LOG_FILE"`

	TLSDisabled bool   `env:"CHAINCODE_TLS_DISABLED" envDefault:"true"`
	TLSKey      string `env:"CHAINCODE_TLS_KEY"`
	TLSCert     string `env:"CHAINCODE_TLS_CERT"`
	ClientCA    string `env:"CHAINCODE_CLIENT_CA_CERT"`
}

// AsService reports whether the chaincode runs as an external service
func (c Config) AsService() bool {
	return c.ChaincodeID != ""
}

// Load reads the optional dotenv files, then parses the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if !cfg.TLSDisabled && (cfg.TLSKey == "" || cfg.TLSCert == "") {
		return nil, fmt.Errorf("CHAINCODE_TLS_KEY and CHAINCODE_TLS_CERT are required when TLS is enabled")
	}
	return &cfg, nil
}
