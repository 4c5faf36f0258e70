package config

const (
	authURLVar  = "TASKFLOW_AUTH_URL"
	teamURLVar  = "TASKFLOW_TEAM_URL"
	taskURLVar  = "TASKFLOW_TASK_URL"
	redisVar    = "TASKFLOW_REDIS_ENDPOINT"
	defaultAuth = "http://localhost:8000"
	defaultTeam = "http://localhost:8001"
	defaultTask = "http://localhost:8002"
)

type Services struct{}

var _ ServiceConfig = Services{}

func (Services) GetAuthBaseURL() string {
	return GetEnv(authURLVar, defaultAuth)
}

func (Services) GetTeamBaseURL() string {
	return GetEnv(teamURLVar, defaultTeam)
}

func (Services) GetTaskBaseURL() string {
	return GetEnv(taskURLVar, defaultTask)
}

// GetRedisEndpoint returns the shared credential store endpoint, empty when
// the local file store should be used instead.
func (Services) GetRedisEndpoint() string {
	return GetEnv(redisVar, "")
}
