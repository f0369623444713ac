package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credentials are the Cloud Director system administrator credentials. They
// are resolved from the process environment or a dotenv file, never from
// nsx-v2t.toml, so the config file stays safe to commit.
type Credentials struct {
	Username string
	Password string
	// DotenvPath is the file the values came from, empty when they came
	// from the process environment.
	DotenvPath string
}

// ResolveCredentials reads VCD_USERNAME and VCD_PASSWORD from the process
// environment, falling back to a .env file next to the config file (or in
// the working directory when no config file was found).
func ResolveCredentials(config *Config) (*Credentials, error) {
	creds := &Credentials{
		Username: os.Getenv("VCD_USERNAME"),
		Password: os.Getenv("VCD_PASSWORD"),
	}
	if creds.Username != "" && creds.Password != "" {
		return creds, nil
	}

	baseDir := ""
	if config != nil {
		baseDir = config.ConfigDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	dotenvPath := filepath.Join(baseDir, ".env")

	info, err := os.Stat(dotenvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to access %s: %w", dotenvPath, err)
	}
	if info.IsDir() {
		return nil, ErrNoCredentials
	}

	values, err := godotenv.Read(dotenvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
	}
	if creds.Username == "" {
		creds.Username = values["VCD_USERNAME"]
	}
	if creds.Password == "" {
		creds.Password = values["VCD_PASSWORD"]
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrNoCredentials
	}
	creds.DotenvPath = dotenvPath
	return creds, nil
}
