package main

type (
	ServiceConfig struct {
		Environment string `env:"TREEPROF_ENVIRONMENT" env-default:"development"`
		Port        int    `env:"TREEPROF_PORT" env-default:"8080"`

		SentryDSN string `env:"SENTRY_DSN"`

		LogsBucketURL string `env:"TREEPROF_LOGS_BUCKET_URL" env-default:"mem://"`

		LogsKafkaBrokers []string `env:"TREEPROF_KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
		LogsKafkaTopic   string   `env:"TREEPROF_LOGS_KAFKA_TOPIC" env-default:"archived-logs"`

		LogLevel string `env:"TREEPROF_LOG_LEVEL" env-default:"info"`
	}
)
