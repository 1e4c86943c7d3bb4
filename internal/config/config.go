package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Name     string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		CORSOrigins     []string      `mapstructure:"cors_origins"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Storage struct {
		Driver string
	} `mapstructure:"storage"`

	Postgres struct {
		DSN      string
		MaxConns int32 `mapstructure:"max_conns"`
		Migrate  bool
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Auth struct {
		JWTSecret   string `mapstructure:"jwt_secret"`
		VerifyStaff bool   `mapstructure:"verify_staff"`
	} `mapstructure:"auth"`

	Sales struct {
		FolioPrefix           string `mapstructure:"folio_prefix"`
		StrictFolio           bool   `mapstructure:"strict_folio"`
		ForbidCancelCompleted bool   `mapstructure:"forbid_cancel_completed"`
	} `mapstructure:"sales"`

	Events struct {
		SubscriberBuffer int           `mapstructure:"subscriber_buffer"`
		SinkQueue        int           `mapstructure:"sink_queue"`
		SinkTimeout      time.Duration `mapstructure:"sink_timeout"`
	} `mapstructure:"events"`

	Kafka struct {
		Enabled bool
		Brokers []string
		Topic   string
	} `mapstructure:"kafka"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.name", "tienda-pos")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.migrate", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("auth.verify_staff", true)
	v.SetDefault("sales.folio_prefix", "V")
	v.SetDefault("events.subscriber_buffer", 64)
	v.SetDefault("events.sink_queue", 256)
	v.SetDefault("events.sink_timeout", 5*time.Second)
	v.SetDefault("kafka.topic", "pos.events")
}

// Load reads the YAML file at path; APP_* variables (also from .env) override it,
// e.g. APP_POSTGRES_DSN for postgres.dsn.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return errors.New("config: storage.driver must be postgres or memory")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return err
	}
	return nil
}

// Location is the timezone used for "today" and "this month" boundaries.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
