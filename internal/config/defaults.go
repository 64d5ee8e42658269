package config

const (
	defaultConfigPath           = "~/.config/fileslink/config.toml"
	defaultDataDir              = "~/.local/share/fileslink"
	defaultLogDir               = "~/.local/share/fileslink/logs"
	defaultTelegramAPIURL       = "https://api.telegram.org"
	defaultPollTimeout          = 30
	defaultTelegramTimeout      = 0
	defaultHTTPBind             = "0.0.0.0:8080"
	defaultFileDomain           = "http://localhost:8080/files/"
	defaultProxyURL             = "http://localhost:8001"
	defaultStatusRetryAttempts  = 3
	defaultNotifyRequestTimeout = 10
	defaultNotifyQueueMinItems  = 2
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultFailureRetryInterval = 0
	defaultMetricsEnabled       = true
	defaultNotifyFailures       = true
	defaultNotifyQueueDrained   = true
	defaultEnableFilesRoute     = false
	defaultProxyRequestTimeout  = 0
	defaultAccessAllowAll       = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Telegram: Telegram{
			APIURL:         defaultTelegramAPIURL,
			PollTimeout:    defaultPollTimeout,
			RequestTimeout: defaultTelegramTimeout,
		},
		HTTP: HTTP{
			Bind:             defaultHTTPBind,
			FileDomain:       defaultFileDomain,
			EnableFilesRoute: defaultEnableFilesRoute,
		},
		Proxy: Proxy{
			URL:            defaultProxyURL,
			RequestTimeout: defaultProxyRequestTimeout,
		},
		Access: Access{
			AllowAll: defaultAccessAllowAll,
		},
		Queue: Queue{
			StatusRetryAttempts:  defaultStatusRetryAttempts,
			FailureRetryInterval: defaultFailureRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Failures:       defaultNotifyFailures,
			QueueDrained:   defaultNotifyQueueDrained,
			QueueMinItems:  defaultNotifyQueueMinItems,
		},
		Metrics: Metrics{
			Enabled: defaultMetricsEnabled,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
