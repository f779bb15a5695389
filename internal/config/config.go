package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Providers ProvidersConfig `yaml:"providers"`
	LDAP      LDAPConfig      `yaml:"ldap"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// JWTConfig controls access token signing and the token pair lifetimes.
// AccessExpireHour and RefreshGraceDays are startup defaults; both can be
// overridden at runtime through system configs.
type JWTConfig struct {
	Secret           string `yaml:"secret"`
	AccessExpireHour int    `yaml:"access_expire_hour"`
	RefreshGraceDays int    `yaml:"refresh_grace_days"`
}

// ProvidersConfig holds OAuth credentials for each supported social provider.
type ProvidersConfig struct {
	Google   OAuthProviderConfig `yaml:"google"`
	GitHub   OAuthProviderConfig `yaml:"github"`
	Facebook OAuthProviderConfig `yaml:"facebook"`
}

type OAuthProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

type LDAPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDN       string `yaml:"base_dn"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserFilter   string `yaml:"user_filter"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// RedisConfig enables the optional async audit pipeline.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "authgate.db",
		},
		JWT: JWTConfig{
			Secret:           "authgate-secret-key-change-in-production",
			AccessExpireHour: 720,
			RefreshGraceDays: 30,
		},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(uid=%s)",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if hours := os.Getenv("JWT_ACCESS_EXPIRE_HOUR"); hours != "" {
		if n, err := strconv.Atoi(hours); err == nil && n > 0 {
			c.JWT.AccessExpireHour = n
		}
	}
	if days := os.Getenv("JWT_REFRESH_GRACE_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			c.JWT.RefreshGraceDays = n
		}
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		c.Providers.Google.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		c.Providers.Google.ClientSecret = secret
	}
	if uri := os.Getenv("GOOGLE_REDIRECT_URI"); uri != "" {
		c.Providers.Google.RedirectURI = uri
	}
	if id := os.Getenv("GITHUB_CLIENT_ID"); id != "" {
		c.Providers.GitHub.ClientID = id
	}
	if secret := os.Getenv("GITHUB_CLIENT_SECRET"); secret != "" {
		c.Providers.GitHub.ClientSecret = secret
	}
	if id := os.Getenv("FACEBOOK_CLIENT_ID"); id != "" {
		c.Providers.Facebook.ClientID = id
	}
	if secret := os.Getenv("FACEBOOK_CLIENT_SECRET"); secret != "" {
		c.Providers.Facebook.ClientSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}
}
