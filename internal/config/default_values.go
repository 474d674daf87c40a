package config

const (
	DefaultProvider           = "gemini"
	DefaultProviderTimeoutMS  = 60000
	DefaultProviderMaxRetries = 2

	DefaultStorageBackend = "sqlite"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultServerAddr = "127.0.0.1:8787"

	DefaultContextTokenBudget = 24000

	DefaultRecordingDelayMS = 2500
)
