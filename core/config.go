package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the process-wide configuration, set up by NewConfig.
var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MeetingsConfig struct {
		CacheTTL         time.Duration
		PollInterval     time.Duration
		StorePath        string // empty: in-memory store
		SubscriberBuffer int
	}

	// ClientConfig configures the portal's connection to the API.
	ClientConfig struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	Config struct {
		Env             string
		Debug           bool
		TestMode        bool
		AppName         string
		Build           string
		WorkDir         string
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string
		Storage         string // postgres | memory

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Meetings MeetingsConfig
		Client   ClientConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (dc DatabaseConfig) Address() string {
	if dc.Port == "" {
		return dc.Host
	}
	return net.JoinHostPort(dc.Host, dc.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Dissertrack")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x8#k2m!v0q9r$e7+tz&uod1(h!s)#*c2(#yg4h^$ceqm2ebn")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("storage", "postgres")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "dissertrack")
	v.SetDefault("database.user", "dissertrack")
	v.SetDefault("database.password", "dissertrack")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTls", true)

	v.SetDefault("meetings.cacheTtl", 30*time.Minute)
	v.SetDefault("meetings.pollInterval", 30*time.Second)
	v.SetDefault("meetings.storePath", "")
	v.SetDefault("meetings.subscriberBuffer", 16)

	v.SetDefault("client.baseUrl", "http://localhost:8000")
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", 15*time.Second)
}

// NewConfig reads defaults, `config/.env.<env>` and the environment into a Config and installs it as Conf.
// Environment variables are prefixed by the env name, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		WorkDir:                   wd,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseUrl"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		Storage:                   v.GetString("storage"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Meetings: MeetingsConfig{
			CacheTTL:         v.GetDuration("meetings.cacheTtl"),
			PollInterval:     v.GetDuration("meetings.pollInterval"),
			StorePath:        v.GetString("meetings.storePath"),
			SubscriberBuffer: v.GetInt("meetings.subscriberBuffer"),
		},
		Client: ClientConfig{
			BaseURL: v.GetString("client.baseUrl"),
			Token:   v.GetString("client.token"),
			Timeout: v.GetDuration("client.timeout"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	Conf = conf
	return conf
}
