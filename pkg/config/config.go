// Package config loads the application config from a TOML file.
// Secrets (the postgres password) come from the environment, never
// from the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"yatube/pkg/storage/postgres"
)

const (
	defaultAddr     = ":8080"
	defaultCacheTTL = 20
)

type Server struct {
	Addr       string `toml:"addr"`
	MediaRoot  string `toml:"media_root"`
	StaticRoot string `toml:"static_root"`
	Templates  string `toml:"templates"`
}

type Cache struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

type Postgres struct {
	User   string `toml:"user"`
	Host   string `toml:"host"`
	Port   string `toml:"port"`
	DBName string `toml:"dbname"`
}

type Kafka struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Cache    Cache    `toml:"cache"`
	Postgres Postgres `toml:"postgres"`
	Kafka    Kafka    `toml:"kafka"`
}

func Load(path string) (*Config, error) {
	conf := Config{
		Server: Server{
			Addr:       defaultAddr,
			MediaRoot:  "media",
			StaticRoot: "static",
			Templates:  "templates",
		},
		Cache: Cache{TTLSeconds: defaultCacheTTL},
	}

	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	}

	return &conf, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// PostgresConf merges the file settings with the POSTGRES_PASSWORD
// environment variable.
func (c *Config) PostgresConf() postgres.Config {
	return postgres.Config{
		User:     c.Postgres.User,
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		DBName:   c.Postgres.DBName,
	}
}
