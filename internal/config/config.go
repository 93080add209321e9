package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	Auth      AuthConfig      `mapstructure:"auth"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port    string        `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitMQConfig struct {
	URL        string `mapstructure:"url"`
	AlertQueue string `mapstructure:"alert_queue"`
	Exchange   string `mapstructure:"exchange"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type WhatsAppConfig struct {
	APIURL        string `mapstructure:"api_url"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	Token         string `mapstructure:"token"`
}

type StorageConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Bucket  string `mapstructure:"bucket"`
	Token   string `mapstructure:"token"`
}

type SchedulerConfig struct {
	AutoClose time.Duration `mapstructure:"auto_close"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.timeout", "10s")
	viper.SetDefault("rabbitmq.exchange", "reminders.direct")
	viper.SetDefault("rabbitmq.alert_queue", "alerts.queue")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("whatsapp.api_url", "https://graph.facebook.com/v17.0")
	viper.SetDefault("storage.bucket", "medication-verifications")
	viper.SetDefault("scheduler.auto_close", "6s")

	// Read from environment
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
