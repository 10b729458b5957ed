// Package config loads the reader configuration file:
//
//	log_level: info
//	lock_status_words: ["6A81"]
//	schemes: schemes.yaml
//	trace: taps.cbor
//	terminal:
//	  ttq: "36004000"
//	  country_code: "0250"
//	  currency_code: "0978"
//
// Relative paths are resolved against the directory of the file.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"

	"github.com/gregLibert/paycard/pkg/emv"
	"github.com/gregLibert/paycard/pkg/iso7816"
	"github.com/gregLibert/paycard/pkg/scheme"
	"github.com/gregLibert/paycard/pkg/session"
)

// Config is the content of a configuration file.
type Config struct {
	LogLevel        string    `yaml:"log_level"`
	LockStatusWords []string  `yaml:"lock_status_words"`
	Schemes         string    `yaml:"schemes"`
	Trace           string    `yaml:"trace"`
	Terminal        *Terminal `yaml:"terminal"`
}

// Terminal overrides parts of the terminal profile used to answer PDOLs.
// Values are hex; empty keeps the default.
type Terminal struct {
	TTQ          string `yaml:"ttq"`
	CountryCode  string `yaml:"country_code"`
	CurrencyCode string `yaml:"currency_code"`
}

// LoadError reports a configuration that could not be used.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default is the configuration used without a file.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		LockStatusWords: []string{"6A81"},
	}
}

// Parse reads a configuration from YAML. Keys left out keep their default.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	c, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
		}
		return nil, err
	}

	dir := filepath.Dir(path)
	c.Schemes = resolve(dir, c.Schemes)
	c.Trace = resolve(dir, c.Trace)
	return c, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func (c *Config) validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.lockStatusWords(); err != nil {
		return err
	}
	if _, err := c.terminal(); err != nil {
		return err
	}
	return nil
}

var levels = map[string]logging.LogLevel{
	"disabled": logging.LogLevelDisabled,
	"error":    logging.LogLevelError,
	"warn":     logging.LogLevelWarn,
	"info":     logging.LogLevelInfo,
	"debug":    logging.LogLevelDebug,
	"trace":    logging.LogLevelTrace,
}

// Level returns the pion log level named by LogLevel.
func (c *Config) Level() (logging.LogLevel, error) {
	if c.LogLevel == "" {
		return logging.LogLevelInfo, nil
	}
	level, ok := levels[strings.ToLower(c.LogLevel)]
	if !ok {
		return 0, &LoadError{Message: fmt.Sprintf("unknown log_level %q", c.LogLevel)}
	}
	return level, nil
}

// lockStatusWords returns nil for an absent key so the driver default
// applies; an explicit empty list disables lock detection.
func (c *Config) lockStatusWords() ([]iso7816.StatusWord, error) {
	if c.LockStatusWords == nil {
		return nil, nil
	}
	out := make([]iso7816.StatusWord, 0, len(c.LockStatusWords))
	for _, s := range c.LockStatusWords {
		sw, err := iso7816.ParseStatusWord(strings.TrimSpace(s))
		if err != nil {
			return nil, &LoadError{Message: "invalid lock_status_words", Cause: err}
		}
		out = append(out, sw)
	}
	return out, nil
}

func (c *Config) terminal() (*emv.Terminal, error) {
	if c.Terminal == nil {
		return nil, nil
	}
	t := emv.DefaultTerminal()
	for _, f := range []struct {
		key   string
		value string
		size  int
		dst   *[]byte
	}{
		{"ttq", c.Terminal.TTQ, 4, &t.TTQ},
		{"country_code", c.Terminal.CountryCode, 2, &t.CountryCode},
		{"currency_code", c.Terminal.CurrencyCode, 2, &t.CurrencyCode},
	} {
		if f.value == "" {
			continue
		}
		b, err := hex.DecodeString(f.value)
		if err != nil || len(b) != f.size {
			return nil, &LoadError{Message: fmt.Sprintf("terminal.%s: want %d hex bytes, got %q", f.key, f.size, f.value)}
		}
		*f.dst = b
	}
	return &t, nil
}

// Session builds the session configuration, loading the scheme table when
// one is named. factory may be nil.
func (c *Config) Session(factory logging.LoggerFactory) (session.Config, error) {
	locks, err := c.lockStatusWords()
	if err != nil {
		return session.Config{}, err
	}
	term, err := c.terminal()
	if err != nil {
		return session.Config{}, err
	}

	var table scheme.Table
	if c.Schemes != "" {
		if table, err = scheme.LoadTable(c.Schemes); err != nil {
			return session.Config{}, &LoadError{File: c.Schemes, Message: "failed to load scheme table", Cause: err}
		}
	}

	return session.Config{
		LockStatusWords: locks,
		Schemes:         table,
		Terminal:        term,
		LoggerFactory:   factory,
	}, nil
}
