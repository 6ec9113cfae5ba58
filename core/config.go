package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       string
		User       string
		Password   string
		Name       string
		DisableTLS bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	PlacementConfig struct {
		SessionTTL   time.Duration
		SessionStore string // memory | redis
	}

	NotifyConfig struct {
		MaxAttempts int
	}

	Config struct {
		Env                string
		Debug              bool
		TestMode           bool
		AppName            string
		SecretKey          string
		JWTExpirationDelta time.Duration
		ServerAddr         string
		DefaultFromEmail   string
		RollbarToken       string
		SendgridApiKey     string
		Build              string

		Database  DatabaseConfig
		Redis     RedisConfig
		Placement PlacementConfig
		Notify    NotifyConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func init() {
	Conf = LoadConfig()
}

// LoadConfig reads the configuration from the environment, optionally seeded by `config/.env.<env>`.
func LoadConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "School Scan")
	v.SetDefault("secretKey", "n7#c(school)scan!x2$d9-qe+tr4&w0=zp@h1ma%k6")
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("build", "dev")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "schoolscan")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("placement.sessionTTL", 12*time.Hour)
	v.SetDefault("placement.sessionStore", "memory")
	v.SetDefault("notify.maxAttempts", 5)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		ServerAddr:         v.GetString("serverAddr"),
		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		RollbarToken:       v.GetString("rollbarToken"),
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		Build:              v.GetString("build"),
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetString("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Name:       v.GetString("database.name"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Placement: PlacementConfig{
			SessionTTL:   v.GetDuration("placement.sessionTTL"),
			SessionStore: v.GetString("placement.sessionStore"),
		},
		Notify: NotifyConfig{
			MaxAttempts: v.GetInt("notify.maxAttempts"),
		},
	}
}
