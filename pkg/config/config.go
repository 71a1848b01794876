package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

type Config struct {
	Environment string `koanf:"environment" default:"development"`
	Hostname    string `koanf:"-"`

	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`

	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"5000"`

	// TrustedProxies lists the IPs or CIDR ranges allowed to set
	// X-Forwarded-For. Empty means the socket peer is the client.
	TrustedProxies []string `koanf:"trusted_proxies"`

	JWTSecret string        `koanf:"jwt_secret" validate:"required"`
	JWTExpiry time.Duration `koanf:"jwt_expiry" default:"48h"`

	FrontendURL        string   `koanf:"frontend_url" default:"http://localhost:3000"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" default:"[\"http://localhost:3000\"]"`

	MediaDir       string `koanf:"media_dir" default:"./tmp/media"`
	MediaURL       string `koanf:"media_url" default:"http://localhost:5000/media"`
	AvatarMaxBytes int64  `koanf:"avatar_max_bytes" default:"5242880"`

	ImageProxyAllowedHosts []string      `koanf:"image_proxy_allowed_hosts" default:"[\"h1.manimg24.com\"]"`
	ImageProxyReferer      string        `koanf:"image_proxy_referer" default:"https://harimanga.me/"`
	ImageProxyUserAgent    string        `koanf:"image_proxy_user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`
	ImageProxyTimeout      time.Duration `koanf:"image_proxy_timeout" default:"30s"`

	RateLimitRequestsPerMinute  int `koanf:"rate_limit_requests_per_minute" default:"120"`
	RateLimitBurst              int `koanf:"rate_limit_burst" default:"30"`
	LoginRequestsPerMinute      int `koanf:"login_requests_per_minute" default:"10"`
	LoginBurst                  int `koanf:"login_burst" default:"5"`
	ImageProxyRequestsPerMinute int `koanf:"image_proxy_requests_per_minute" default:"600"`
	ImageProxyBurst             int `koanf:"image_proxy_burst" default:"120"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "./config/mangalife.yaml"
)

// New loads configuration from, in increasing priority: struct defaults, the
// YAML file at CONFIG_FILE, and environment variables. A .env file in the
// working directory is loaded into the environment first if one exists.
func New() (*Config, error) {
	// A missing .env is the normal case outside of local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	k := koanf.New(".")

	path := os.Getenv(configFileENV)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	keys := configKeys()
	err = k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		name := strings.ToLower(key)
		if _, ok := keys[name]; !ok {
			return "", nil
		}
		if keys[name] == reflect.Slice {
			return name, splitList(value)
		}
		return name, value
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests, without reading any files
// or environment variables.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.Environment = "test"
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-secret"
	cfg.MediaURL = "http://media.test"
	cfg.FrontendURL = "http://frontend.test"
	return cfg
}

// IsTest reports whether the server is running in the test environment.
func (cfg *Config) IsTest() bool {
	return cfg.Environment == "test"
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := toSnakeCase(fe.StructField())
		missing = append(missing, strings.ToUpper(key)+" (env) / "+key+" (file)")
	}
	return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
}

// configKeys maps every koanf key on Config to its kind, so the env provider
// only picks up variables that belong to us.
func configKeys() map[string]reflect.Kind {
	keys := map[string]reflect.Kind{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = f.Type.Kind()
	}
	return keys
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
