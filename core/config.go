package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string `mapstructure:"env"` // DEV (local; default), TEST, QA, PROD
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testmode"`
		AppName      string `mapstructure:"appname"`
		SecretKey    string `mapstructure:"secretkey"`
		TimeZone     string `mapstructure:"timezone"`
		RollbarToken string `mapstructure:"rollbartoken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Mail     MailConfig     `mapstructure:"mail"`
		Storage  StorageConfig  `mapstructure:"storage"`
	}

	ServerConfig struct {
		Address            string        `mapstructure:"address"`
		DebugAddress       string        `mapstructure:"debugaddress"`
		ReadTimeout        time.Duration `mapstructure:"readtimeout"`
		WriteTimeout       time.Duration `mapstructure:"writetimeout"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdowntimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtexpirationdelta"`
		MaxUploadSize      string        `mapstructure:"maxuploadsize"`
		SecureCookies      bool          `mapstructure:"securecookies"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminuser"`
		AdminPassword string `mapstructure:"adminpassword"`
		DisableTLS    bool   `mapstructure:"disabletls"`
		MaxOpenConns  int    `mapstructure:"maxopenconns"`
	}

	MailConfig struct {
		FromName       string `mapstructure:"fromname"`
		FromAddress    string `mapstructure:"fromaddress"`
		SendgridAPIKey string `mapstructure:"sendgridapikey"`
		Notify         bool   `mapstructure:"notify"`
		BaseURL        string `mapstructure:"baseurl"`
	}

	StorageConfig struct {
		Backend  string `mapstructure:"backend"` // local | b2
		LocalDir string `mapstructure:"localdir"`
		BaseURL  string `mapstructure:"baseurl"`
		B2KeyID  string `mapstructure:"b2keyid"`
		B2AppKey string `mapstructure:"b2appkey"`
		B2Bucket string `mapstructure:"b2bucket"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c MailConfig) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.FromName, Address: c.FromAddress}
}

// Location returns the time zone used to compute "today" and to read form dates.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testmode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appname", "Registro")
	v.SetDefault("secretkey", "x9v!k2#pq7-registro-dev-only-&3m@z0c$w8r(h1)")
	v.SetDefault("timezone", "")
	v.SetDefault("rollbartoken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugaddress", ":4000")
	v.SetDefault("server.readtimeout", 5*time.Second)
	v.SetDefault("server.writetimeout", 10*time.Second)
	v.SetDefault("server.shutdowntimeout", 5*time.Second)
	v.SetDefault("server.jwtexpirationdelta", 7*24*time.Hour)
	v.SetDefault("server.maxuploadsize", "10M")
	v.SetDefault("server.securecookies", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "registro")
	v.SetDefault("database.user", "registro")
	v.SetDefault("database.password", "registro")
	v.SetDefault("database.adminuser", "postgres")
	v.SetDefault("database.adminpassword", "postgres")
	v.SetDefault("database.disabletls", true)
	v.SetDefault("database.maxopenconns", 10)

	v.SetDefault("mail.fromname", "Registro")
	v.SetDefault("mail.fromaddress", "noreply@localhost")
	v.SetDefault("mail.sendgridapikey", "")
	v.SetDefault("mail.notify", true)
	v.SetDefault("mail.baseurl", "http://localhost:8000")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localdir", "media")
	v.SetDefault("storage.baseurl", "/media/")
	v.SetDefault("storage.b2keyid", "")
	v.SetDefault("storage.b2appkey", "")
	v.SetDefault("storage.b2bucket", "")
}

// NewConfig reads the configuration for the environment named by $ENV.
// Values come from (by priority) env vars prefixed with the env name, config/.env.<env> and defaults.
// e.g. DEV_DATABASE_HOST overrides database.host in DEV.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testmode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.Set("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return conf, nil
}
