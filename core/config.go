package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		SessionTTL   time.Duration
		AuthDelay    time.Duration
		PublicURL    string
		RollbarToken string

		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Access      AccessConfig
		Server      ServerConfig
		Storage     StorageConfig
		Gemini      GeminiConfig
		MercadoPago MercadoPagoConfig
	}

	AccessConfig struct {
		// AdminEmails always satisfy the "admin" feature, whatever their role.
		AdminEmails []string
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string // expvar & pprof; disabled when empty
		ShutdownTimeout time.Duration
		RequestLogs     bool
		LoginRateLimit  float64 // requests per second
		LoginBurst      int
	}

	StorageConfig struct {
		Driver        string // memory, file, redis, postgres, sqlite
		Dir           string
		DSN           string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		KeyPrefix     string
		Timeout       time.Duration
	}

	GeminiConfig struct {
		ApiKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}

	MercadoPagoConfig struct {
		AccessToken string
		BaseURL     string
		Timeout     time.Duration
	}
)

// NewConfig reads the configuration from defaults, an optional dotenv file and the environment.
// Environment variables are prefixed with the upper-cased ENV (DEV by default), eg. DEV_STORAGE_DRIVER.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Saber Pedagógico")
	v.SetDefault("secretKey", "v7&k2n!q9zl#3f0w)e4r$8y+u(p1a@s6d=h5j*m^x")
	v.SetDefault("sessionTTL", 24*time.Hour)
	v.SetDefault("authDelay", time.Duration(0))
	v.SetDefault("publicURL", "http://localhost:8000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Saber Pedagógico <noreply@localhost>")
	v.SetDefault("access.adminEmails", []string{"erikson.moreira@gmail.com"})
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.requestLogs", true)
	v.SetDefault("server.loginRateLimit", 5.0)
	v.SetDefault("server.loginBurst", 10)
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.redisAddr", "127.0.0.1:6379")
	v.SetDefault("storage.redisPassword", "")
	v.SetDefault("storage.redisDB", 0)
	v.SetDefault("storage.keyPrefix", "")
	v.SetDefault("storage.timeout", 3*time.Second)
	v.SetDefault("gemini.apiKey", "")
	v.SetDefault("gemini.model", "gemini-3-flash-preview")
	v.SetDefault("gemini.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout", 30*time.Second)
	v.SetDefault("mercadopago.accessToken", "")
	v.SetDefault("mercadopago.baseURL", "https://api.mercadopago.com")
	v.SetDefault("mercadopago.timeout", 15*time.Second)

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
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		SessionTTL:       v.GetDuration("sessionTTL"),
		AuthDelay:        v.GetDuration("authDelay"),
		PublicURL:        strings.TrimRight(v.GetString("publicURL"), "/"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: *from,
		Access: AccessConfig{
			AdminEmails: splitList(v.GetStringSlice("access.adminEmails")),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			RequestLogs:     v.GetBool("server.requestLogs"),
			LoginRateLimit:  v.GetFloat64("server.loginRateLimit"),
			LoginBurst:      v.GetInt("server.loginBurst"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(v.GetString("storage.driver")),
			Dir:           v.GetString("storage.dir"),
			DSN:           v.GetString("storage.dsn"),
			RedisAddr:     v.GetString("storage.redisAddr"),
			RedisPassword: v.GetString("storage.redisPassword"),
			RedisDB:       v.GetInt("storage.redisDB"),
			KeyPrefix:     v.GetString("storage.keyPrefix"),
			Timeout:       v.GetDuration("storage.timeout"),
		},
		Gemini: GeminiConfig{
			ApiKey:  v.GetString("gemini.apiKey"),
			Model:   v.GetString("gemini.model"),
			BaseURL: strings.TrimRight(v.GetString("gemini.baseURL"), "/"),
			Timeout: v.GetDuration("gemini.timeout"),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken: v.GetString("mercadopago.accessToken"),
			BaseURL:     strings.TrimRight(v.GetString("mercadopago.baseURL"), "/"),
			Timeout:     v.GetDuration("mercadopago.timeout"),
		},
	}
	return conf, nil
}

// splitList accepts both proper lists and a single comma separated env value.
func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, val := range vals {
		for _, item := range strings.Split(val, ",") {
			if item = CleanString(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
