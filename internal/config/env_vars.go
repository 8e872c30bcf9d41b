package config

import (
	"fmt"
	"os"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	baseURLVar    = "AUTODOCS_API_URL"
	folderEnvVar  = "AUTODOCS_DATA_FOLDER"
	timeoutEnvVar = "AUTODOCS_TIMEOUT"
	portEnvVar    = "PORT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "AutoDocs")
}

// GetBaseURL returns the portal API root every request is issued against.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8000/api")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetRequestTimeout returns the per-request timeout. An expired timeout is a
// transport failure, never an authorization failure.
func (EnvVars) GetRequestTimeout() time.Duration {
	raw := GetEnv(timeoutEnvVar, "10s")
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetPort returns the listen address for the local mock backend.
func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8000")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
