package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DeploymentMode selects how file links are produced: direct endpoint URLs in
// local development, presigned URLs everywhere else. Fixed at startup.
type DeploymentMode string

const (
	ModeLocal  DeploymentMode = "local"
	ModeHosted DeploymentMode = "hosted"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Table     TableConfig     `mapstructure:"table"`
	Cognito   CognitoConfig   `mapstructure:"cognito"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	LocalDev        bool   `mapstructure:"local_dev"`
}

type StorageConfig struct {
	BucketName string `mapstructure:"bucket_name"`
	Endpoint   string `mapstructure:"endpoint"`
}

type TableConfig struct {
	Name      string `mapstructure:"name"`
	IndexName string `mapstructure:"index_name"`
	Endpoint  string `mapstructure:"endpoint"`
}

type CognitoConfig struct {
	Region      string `mapstructure:"region"`
	UserPoolID  string `mapstructure:"user_pool_id"`
	AppClientID string `mapstructure:"app_client_id"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CORSConfig struct {
	AllowedOrigin    string `mapstructure:"allowed_origin"`
	AllowCredentials bool   `mapstructure:"allow_credentials"`
}

type RateLimitConfig struct {
	Window    time.Duration `mapstructure:"window"`
	APIMax    int64         `mapstructure:"api_max"`
	HealthMax int64         `mapstructure:"health_max"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Mode derives the deployment mode from the local_dev flag.
func (c *Config) Mode() DeploymentMode {
	if c.AWS.LocalDev {
		return ModeLocal
	}
	return ModeHosted
}

// Issuer returns the expected token issuer for the configured user pool.
func (c *CognitoConfig) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the hosted key-set URL for the configured user pool.
func (c *CognitoConfig) JWKSURL() string {
	return c.Issuer() + "/.well-known/jwks.json"
}

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if envConfigFile := os.Getenv("CONFIG_FILE"); envConfigFile != "" {
		configPath = envConfigFile
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		ext := filepath.Ext(file)
		name := strings.TrimSuffix(file, ext)

		v.AddConfigPath(dir)
		v.SetConfigName(name)
	} else {
		_, filename, _, _ := runtime.Caller(0)
		pkgConfigDir := filepath.Dir(filename)
		projectRoot := filepath.Join(pkgConfigDir, "..", "..")

		v.AddConfigPath(pkgConfigDir)
		v.AddConfigPath(projectRoot)
		v.SetConfigName("config")
	}

	setDefaults(v)

	// The config file is optional; env vars plus defaults cover a full local setup.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error loading config file: %v", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envVars := map[string]string{
		"server.port":           "PORT",
		"server.mode":           "SERVER_MODE",
		"aws.region":            "AWS_REGION",
		"aws.access_key_id":     "AWS_ACCESS_KEY_ID",
		"aws.secret_access_key": "AWS_SECRET_ACCESS_KEY",
		"aws.local_dev":         "LOCAL_DEV",
		"storage.bucket_name":   "S3_BUCKET_NAME",
		"storage.endpoint":      "S3_ENDPOINT",
		"table.name":            "DYNAMODB_TABLE_NAME",
		"table.endpoint":        "DYNAMODB_ENDPOINT",
		"cognito.region":        "COGNITO_REGION",
		"cognito.user_pool_id":  "COGNITO_USER_POOL_ID",
		"cognito.app_client_id": "COGNITO_APP_CLIENT_ID",
		"redis.host":            "REDIS_HOST",
		"redis.port":            "REDIS_PORT",
		"redis.password":        "REDIS_PASSWORD",
		"redis.db":              "REDIS_DB",
		"cors.allowed_origin":   "CORS_ORIGIN",
		"rate_limit.api_max":    "RATE_LIMIT_API_MAX",
		"rate_limit.health_max": "RATE_LIMIT_HEALTH_MAX",
		"logging.level":         "LOG_LEVEL",
		"logging.format":        "LOG_FORMAT",
	}

	for configKey, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			switch envVar {
			case "PORT", "REDIS_PORT", "REDIS_DB", "RATE_LIMIT_API_MAX", "RATE_LIMIT_HEALTH_MAX":
				if intVal, err := strconv.Atoi(value); err == nil {
					v.Set(configKey, intVal)
				}
			case "LOCAL_DEV":
				if value == "true" || value == "1" {
					v.Set(configKey, true)
				} else if value == "false" || value == "0" {
					v.Set(configKey, false)
				}
			default:
				v.Set(configKey, value)
			}
		}
	}

	// Deployments that predate the app client id rename still set the web client variable.
	if os.Getenv("COGNITO_APP_CLIENT_ID") == "" {
		if value := os.Getenv("COGNITO_USER_POOL_WEB_CLIENT_ID"); value != "" {
			v.Set("cognito.app_client_id", value)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if config.Cognito.Region == "" {
		config.Cognito.Region = config.AWS.Region
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "dummy")
	v.SetDefault("aws.secret_access_key", "dummy")
	v.SetDefault("aws.local_dev", false)
	v.SetDefault("storage.bucket_name", "my-daily-log-files")
	v.SetDefault("storage.endpoint", "http://localhost:4566")
	v.SetDefault("table.name", "DailyLogEvents")
	v.SetDefault("table.index_name", "userSub-index")
	v.SetDefault("table.endpoint", "http://localhost:8000")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("cors.allowed_origin", "http://localhost:3000")
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.api_max", 30)
	v.SetDefault("rate_limit.health_max", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
