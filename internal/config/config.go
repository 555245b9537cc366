// Package config loads the feedsync YAML file: where to publish and which
// feeds to publish as which destination users.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"feedsync/internal/domain/entity"
	"feedsync/internal/infra/feoblog"
	pkgconfig "feedsync/internal/pkg/config"
	"feedsync/internal/usecase/syncer"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is used when neither --config nor EnvPath is set.
	DefaultPath = "feedsync.yaml"

	// EnvPath overrides DefaultPath.
	EnvPath = "FEEDSYNC_CONFIG"
)

// ErrInvalidConfig wraps every validation failure returned by Load and Parse.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the parsed config file.
type Config struct {
	// DestinationURLs lists FeoBlog servers. Only the first one is used.
	DestinationURLs []string `yaml:"destination_urls"`

	Feeds []Feed `yaml:"feeds"`
}

// Feed is one feed mapping.
type Feed struct {
	// Name is optional. It becomes the destination profile's display name.
	Name     string `yaml:"name"`
	RSSURL   string `yaml:"rss_url"`
	UserID   string `yaml:"user_id"`
	Password string `yaml:"password"`
}

// ResolvePath picks the config path: flag, then $FEEDSYNC_CONFIG, then DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	return pkgconfig.LoadEnvString(EnvPath, DefaultPath)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path comes from the command line or environment
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a config document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the config, joined. Each feed's
// password must be the private key for its user_id.
func (c *Config) Validate() error {
	var errs []error
	if len(c.DestinationURLs) == 0 {
		errs = append(errs, &entity.ValidationError{Field: "destination_urls", Message: "at least one destination URL is required"})
	}
	for i, u := range c.DestinationURLs {
		if err := entity.ValidateURL(fmt.Sprintf("destination_urls[%d]", i), u); err != nil {
			errs = append(errs, err)
		}
	}

	if len(c.Feeds) == 0 {
		errs = append(errs, &entity.ValidationError{Field: "feeds", Message: "at least one feed is required"})
	}
	for i, f := range c.Feeds {
		errs = append(errs, f.validate(fmt.Sprintf("feeds[%d]", i))...)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func (f Feed) validate(prefix string) []error {
	var errs []error
	if strings.TrimSpace(f.RSSURL) == "" {
		errs = append(errs, &entity.ValidationError{Field: prefix + ".rss_url", Message: "rss_url is required"})
	} else if err := entity.ValidateURL(prefix+".rss_url", f.RSSURL); err != nil {
		errs = append(errs, err)
	}

	switch {
	case f.UserID == "":
		errs = append(errs, &entity.ValidationError{Field: prefix + ".user_id", Message: "user_id is required"})
	case f.Password == "":
		errs = append(errs, &entity.ValidationError{Field: prefix + ".password", Message: "password is required"})
	default:
		if _, err := feoblog.NewKeyPair(f.UserID, f.Password); err != nil {
			errs = append(errs, &entity.ValidationError{Field: prefix, Message: err.Error()})
		}
	}
	return errs
}

// DestinationURL returns the server to publish to.
func (c *Config) DestinationURL() string {
	return c.DestinationURLs[0]
}

// FeedConfigs converts the feeds to the sync core's representation.
func (c *Config) FeedConfigs() []syncer.FeedConfig {
	out := make([]syncer.FeedConfig, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		out = append(out, syncer.FeedConfig{
			Name:      f.Name,
			SourceURL: f.RSSURL,
			AuthorID:  f.UserID,
			Secret:    f.Password,
		})
	}
	return out
}
