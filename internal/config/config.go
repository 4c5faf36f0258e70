package config

type Config interface {
	EnvConfig
	ServiceConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

// ServiceConfig exposes the base URLs of the three TaskFlow backends.
// All token refreshes go through the auth service regardless of which
// backend the original request targeted.
type ServiceConfig interface {
	GetAuthBaseURL() string
	GetTeamBaseURL() string
	GetTaskBaseURL() string
	GetRedisEndpoint() string
}

type mainConfig struct {
	EnvVars
	Services
}

func New() Config {
	return mainConfig{}
}
