package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	Notifier NotifierConfig `mapstructure:"notifier"`
}

type ServerConfig struct {
	Host         string          `mapstructure:"host"`
	Port         int             `mapstructure:"port"`
	ReadTimeout  time.Duration   `mapstructure:"readTimeout"`
	WriteTimeout time.Duration   `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration   `mapstructure:"idleTimeout"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Path string `mapstructure:"path"`
}

type KafkaConfig struct {
	Brokers       []string     `mapstructure:"brokers"`
	ConsumerGroup string       `mapstructure:"consumerGroup"`
	Topics        TopicsConfig `mapstructure:"topics"`
}

type TopicsConfig struct {
	ProfileUpdated string `mapstructure:"profileUpdated"`
	SyncRequest    string `mapstructure:"syncRequest"`
	SyncReply      string `mapstructure:"syncReply"`
	Notification   string `mapstructure:"notification"`
}

type ConsumerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NotifierConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BrokerURL       string        `mapstructure:"brokerUrl"`
	Topic           string        `mapstructure:"topic"`
	ConnectTimeout  time.Duration `mapstructure:"connectTimeout"`
	CompleteTimeout time.Duration `mapstructure:"completeTimeout"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 9000)
	viper.SetDefault("server.readTimeout", 15*time.Second)
	viper.SetDefault("server.writeTimeout", 15*time.Second)
	viper.SetDefault("server.idleTimeout", 60*time.Second)
	viper.SetDefault("server.rateLimit.enabled", false)
	viper.SetDefault("server.rateLimit.rps", 50)
	viper.SetDefault("server.rateLimit.burst", 100)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("kafka.brokers", []string{"localhost:5411"})
	viper.SetDefault("kafka.consumerGroup", "profile-service")
	viper.SetDefault("kafka.topics.profileUpdated", "customer.profile.updated")
	viper.SetDefault("kafka.topics.syncRequest", "customer.preference.sync.request")
	viper.SetDefault("kafka.topics.syncReply", "customer.preference.sync.reply")
	viper.SetDefault("kafka.topics.notification", "notification.user")
	viper.SetDefault("consumer.enabled", true)
	viper.SetDefault("notifier.enabled", false)
	viper.SetDefault("notifier.brokerUrl", "mqtt://localhost:1883")
	viper.SetDefault("notifier.topic", "notification/user")
	viper.SetDefault("notifier.connectTimeout", 1*time.Second)
	viper.SetDefault("notifier.completeTimeout", 1500*time.Millisecond)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults and environment variables.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
