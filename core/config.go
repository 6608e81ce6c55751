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

// build is the git version of this application. It is set using build flags in the makefile.
var build = "develop"

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail string
		SendgridAPIKey   string
		RollbarToken     string

		PasswordResetTimeoutDelta time.Duration

		Server   serverConfig
		Database DatabaseConfig
		Redis    redisConfig
	}

	serverConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c serverConfig) Address() string {
	return c.Host + ":" + c.Port
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Moodle")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:8080")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "moodle")
	conf.SetDefault("dbUser", "moodle")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "postgres")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("redisAddr", "localhost:6379")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)
	conf.SetDefault("redisTTL", 10*time.Minute)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            build,
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),

		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		Server: serverConfig{
			Host:                      conf.GetString("serverHost"),
			Port:                      conf.GetString("serverPort"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Redis: redisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
			TTL:      conf.GetDuration("redisTTL"),
		},
	}
}
