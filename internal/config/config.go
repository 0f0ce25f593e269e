package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Generator GeneratorConfig `mapstructure:"generator"`
	S3        S3Config        `mapstructure:"s3"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Quota     QuotaConfig     `mapstructure:"quota"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

// GeneratorConfig configures the content generator webhook. StubMode makes
// the client return canned documents without any network call, for local
// development and tests.
type GeneratorConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Secret   string        `mapstructure:"secret"`
	StubMode bool          `mapstructure:"stub_mode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// QuotaConfig is the static role -> athlete-limit table. It is read once at
// process start and never mutated afterwards. A value of -1 means unlimited.
type QuotaConfig struct {
	ProfessionalAthletes int `mapstructure:"professional_athletes"`
	PersonalAthletes     int `mapstructure:"personal_athletes"`
	SelfAthletes         int `mapstructure:"self_athletes"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling, e.g. generator.stub_mode -> GENERATOR_STUB_MODE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "coaching_app")
	viper.SetDefault("generator.endpoint", "http://localhost:5678")
	viper.SetDefault("generator.stub_mode", true)
	viper.SetDefault("generator.timeout", "90s")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	// Quota policy table. Fixed configuration, not computed at runtime.
	viper.SetDefault("quota.professional_athletes", -1)
	viper.SetDefault("quota.personal_athletes", 3)
	viper.SetDefault("quota.self_athletes", 1)

	err = viper.ReadInConfig()
	// Missing config file is fine, we can run on env vars and defaults alone.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
