package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/quarrydb/quarry/runtime/client"
)

var AppFs = afero.NewOsFs()

const (
	configName = ".quarry"
	envPrefix  = "QUARRY"
)

// Config holds the connection settings of the CLI
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Schema         string
	Charset        string
	StmtCache      bool
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Debug          bool

	// DatabaseURL is a go-sql-driver DSN that overrides the discrete fields
	DatabaseURL string
}

// Loader reads configuration from a file, the environment and .env files
type Loader struct {
	v    *viper.Viper
	fs   afero.Fs
	file string
}

// NewLoader creates a loader. An empty file searches the default locations.
func NewLoader(file string) *Loader {
	v := viper.New()
	v.SetFs(AppFs)
	return &Loader{v: v, fs: AppFs, file: file}
}

// LoadConfig loads configuration from the default locations
func LoadConfig(file string) (*Config, error) {
	return NewLoader(file).Load()
}

// Load resolves the configuration
func (l *Loader) Load() (*Config, error) {
	v := l.v

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "quarry"))
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("host", client.DefaultHost)
	v.SetDefault("port", client.DefaultPort)
	v.SetDefault("charset", client.DefaultCharset)
	v.SetDefault("stmt_cache", true)
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env.local wins over .env, the process environment wins over both
	if err := l.loadEnv(".env", false); err != nil {
		return nil, err
	}
	if err := l.loadEnv(".env.local", true); err != nil {
		return nil, err
	}

	return &Config{
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		User:           v.GetString("user"),
		Password:       v.GetString("password"),
		Schema:         v.GetString("schema"),
		Charset:        v.GetString("charset"),
		StmtCache:      v.GetBool("stmt_cache"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		ReadTimeout:    v.GetDuration("read_timeout"),
		WriteTimeout:   v.GetDuration("write_timeout"),
		Debug:          v.GetBool("debug"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
	}, nil
}

func (l *Loader) loadEnv(name string, overload bool) error {
	data, err := afero.ReadFile(l.fs, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for key, value := range env {
		if _, exists := os.LookupEnv(key); exists && !overload {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// ClientOptions converts the configuration to client options
func (c *Config) ClientOptions() (client.Options, error) {
	if c.DatabaseURL != "" {
		opts, err := client.OptionsFromDSN(c.DatabaseURL)
		if err != nil {
			return client.Options{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		opts.StmtCache = c.StmtCache
		return opts, nil
	}
	return client.Options{
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		Schema:         c.Schema,
		Charset:        c.Charset,
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		StmtCache:      c.StmtCache,
	}, nil
}

// SaveConfig writes the configuration to path, or to
// ~/.config/quarry/.quarry.yaml when path is empty. The password is never saved.
func SaveConfig(cfg *Config, path string) (string, error) {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("user", cfg.User)
	v.Set("schema", cfg.Schema)
	v.Set("charset", cfg.Charset)
	v.Set("stmt_cache", cfg.StmtCache)
	v.Set("connect_timeout", cfg.ConnectTimeout.String())
	v.Set("debug", cfg.Debug)

	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, ".config", "quarry", configName+".yaml")
	}

	if err := AppFs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, v.WriteConfigAs(path)
}
