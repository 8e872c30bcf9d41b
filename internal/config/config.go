package config

import "time"

type Config interface {
	EnvConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetRequestTimeout() time.Duration
	GetPort() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
