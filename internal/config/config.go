package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	HTTP struct {
		Addr string `yaml:"addr"` // ":7080"
	} `yaml:"http"`

	MySQL struct {
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
		ConnMaxLife  time.Duration `yaml:"conn_max_life"`
		ConnMaxIdle  time.Duration `yaml:"conn_max_idle"`
	} `yaml:"mysql"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		Database int    `yaml:"database"`
	} `yaml:"redis"`

	WS struct {
		WriteTimeout time.Duration `yaml:"write_timeout"`
		PongWait     time.Duration `yaml:"pong_wait"`
		SendQueue    int           `yaml:"send_queue"`
	} `yaml:"ws"`

	Chat struct {
		HistoryLimit    int           `yaml:"history_limit"`     // default page size
		HistoryMaxLimit int           `yaml:"history_max_limit"` // hard cap
		MemberCacheTTL  time.Duration `yaml:"member_cache_ttl"`
	} `yaml:"chat"`

	Auth struct {
		Enabled bool `yaml:"enabled"`
		Token   struct {
			Header       string `yaml:"header"`
			BearerPrefix string `yaml:"bearer_prefix"`
			QueryKey     string `yaml:"query_key"`
			RedisPrefix  string `yaml:"redis_prefix"`
			Secret       string `yaml:"secret"`
			TTLDays      int    `yaml:"ttl_days"`
		} `yaml:"token"`
	} `yaml:"auth"`
}

// Load supports comma-separated config files: "-c common.yml,yuchat.yml"
func Load(pathList string) (*Config, error) {
	if strings.TrimSpace(pathList) == "" {
		return nil, errors.New("config path required (e.g. -c ./config.yml or -c common.yml,yuchat.yml)")
	}
	var c Config
	paths := strings.Split(pathList, ",")
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":7080"
	}
	if c.WS.WriteTimeout == 0 {
		c.WS.WriteTimeout = 5 * time.Second
	}
	if c.WS.PongWait == 0 {
		c.WS.PongWait = 60 * time.Second
	}
	if c.WS.SendQueue <= 0 {
		c.WS.SendQueue = 256
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 50
	}
	if c.Chat.HistoryMaxLimit <= 0 {
		c.Chat.HistoryMaxLimit = 200
	}
	if c.Chat.MemberCacheTTL == 0 {
		c.Chat.MemberCacheTTL = 30 * time.Second
	}
	if c.Auth.Token.Header == "" {
		c.Auth.Token.Header = "Authorization"
	}
	if c.Auth.Token.BearerPrefix == "" {
		c.Auth.Token.BearerPrefix = "Bearer "
	}
	if c.Auth.Token.QueryKey == "" {
		c.Auth.Token.QueryKey = "token"
	}
	if c.Auth.Token.RedisPrefix == "" {
		c.Auth.Token.RedisPrefix = "token:app:"
	}
	if c.Auth.Token.TTLDays <= 0 {
		c.Auth.Token.TTLDays = 30
	}
	return &c, nil
}
