package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/pior/mpd"
	"github.com/pior/mpd/protocol"
)

// fileConfig is the TOML profile selected with --config:
//
//	host = "music.lan"
//	port = 6600
//	timeout = "2s"
//	password = "secret"
//	strict = false
type fileConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Timeout  string `toml:"timeout"`
	Password string `toml:"password"`
	Strict   bool   `toml:"strict"`
}

func loadFileConfig(path string) (mpd.Config, error) {
	var (
		cfg mpd.Config
		raw fileConfig
	)

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return mpd.Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}

	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return mpd.Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}

	if meta.IsDefined("strict") {
		cfg.Mode = protocol.Lenient
		if raw.Strict {
			cfg.Mode = protocol.Strict
		}
	}

	return cfg, nil
}

// resolveConfig layers the configuration sources:
// flags > environment (dotenv file included) > profile file > defaults.
func resolveConfig(ctx context.Context, lookuper envconfig.Lookuper, opts options, flags mpd.Config) (mpd.Config, error) {
	cfg := mpd.DefaultConfig()

	if opts.configPath != "" {
		file, err := loadFileConfig(opts.configPath)
		if err != nil {
			return mpd.Config{}, err
		}
		cfg = cfg.Merge(file)
	}

	if opts.envFile != "" {
		vars, err := godotenv.Read(opts.envFile)
		if err != nil {
			return mpd.Config{}, fmt.Errorf("load env file: %w", err)
		}
		lookuper = &dotenvLookuper{env: lookuper, file: vars}
	}

	env, err := mpd.EnvOverrides(ctx, lookuper)
	if err != nil {
		return mpd.Config{}, err
	}

	cfg = cfg.Merge(env).Merge(flags)
	if err := cfg.Validate(); err != nil {
		return mpd.Config{}, err
	}

	return cfg, nil
}

// dotenvLookuper reads the dotenv file variables, the process environment
// wins like godotenv.Load does.
type dotenvLookuper struct {
	env  envconfig.Lookuper
	file map[string]string
}

func (l *dotenvLookuper) Lookup(key string) (string, bool) {
	if v, ok := l.env.Lookup(key); ok {
		return v, true
	}
	v, ok := l.file[key]
	return v, ok
}
