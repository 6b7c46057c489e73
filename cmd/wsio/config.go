package main

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/wsio/echo"
	"github.com/yingshulu/wsio/stream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Duration reads "5s" style strings from config files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", s)
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	LogLevel         string   `json:"log_level"`
	Listen           string   `json:"listen"`
	HandshakeTimeout Duration `json:"handshake_timeout"`
	CloseTimeout     Duration `json:"close_timeout"`
	ReadLimit        int64    `json:"read_limit"`
	TextMessages     bool     `json:"text_messages"`
	Secure           bool     `json:"secure"`
	Compression      bool     `json:"compression"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		Listen:           "ws://+:8000/",
		HandshakeTimeout: Duration(10 * time.Second),
		CloseTimeout:     Duration(5 * time.Second),
	}
}

// loadConfig overlays the JSON file at path on the defaults, an empty path
// keeps the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

func (c *Config) setupLog() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	return nil
}

func (c *Config) streamOptions() []stream.Option {
	options := []stream.Option{
		stream.WithHandshakeTimeout(time.Duration(c.HandshakeTimeout)),
		stream.WithCloseTimeout(time.Duration(c.CloseTimeout)),
		stream.WithReadLimit(c.ReadLimit),
	}
	if c.TextMessages {
		options = append(options, stream.WithTextMessages())
	}
	if c.Secure {
		options = append(options, stream.WithSecure())
	}
	if c.Compression {
		options = append(options, stream.WithCompression())
	}
	return options
}

func (c *Config) echoOptions() []echo.Option {
	options := []echo.Option{echo.WithReadLimit(c.ReadLimit)}
	if c.Compression {
		options = append(options, echo.WithCompression())
	}
	return options
}
