package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	StateFile    = ".scraper_state.json"
	ManifestFile = "index.json"
)

type Auth struct {
	Cookie    string `yaml:"cookie"`
	Token     string `yaml:"token"`
	TeamToken string `yaml:"team_token"`
}

// Options is the full configuration handed from the CLI to the scraping core.
type Options struct {
	Url                 string            `yaml:"url" validate:"required,url"`
	OutputDir           string            `yaml:"output_dir" validate:"required"`
	Platform            string            `yaml:"platform" validate:"oneof=auto ctfd picoctf pico rctf mellivora generic unknown html"`
	SkipExisting        bool              `yaml:"skip_existing"`
	DryRun              bool              `yaml:"dry_run"`
	MaxWorkers          int               `yaml:"max_workers" validate:"min=1,max=64"`
	MaxConnections      int               `yaml:"max_connections" validate:"min=0"`
	TimeoutSeconds      int               `yaml:"timeout_seconds" validate:"min=1"`
	ProbeTimeoutSeconds int               `yaml:"probe_timeout_seconds" validate:"min=1"`
	RateLimit           float64           `yaml:"rate_limit" validate:"min=0"`
	Retries             int               `yaml:"retries" validate:"min=1,max=10"`
	RetryDelayMs        int               `yaml:"retry_delay_ms" validate:"min=0"`
	GenericFallback     bool              `yaml:"generic_fallback"`
	Insecure            bool              `yaml:"insecure"`
	UserAgent           string            `yaml:"user_agent"`
	Headers             map[string]string `yaml:"headers"`
	Auth                Auth              `yaml:"auth"`
}

func Default() *Options {
	return &Options{
		OutputDir:           "./ctf_challenges",
		Platform:            "auto",
		SkipExisting:        true,
		MaxWorkers:          10,
		TimeoutSeconds:      30,
		ProbeTimeoutSeconds: 10,
		Retries:             3,
		RetryDelayMs:        1000,
		GenericFallback:     true,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/110.0",
	}
}

// Load reads a YAML config file on top of the defaults. A missing file is not
// an error; the caller gets the defaults and found=false.
func Load(path string) (opts *Options, found bool, err error) {
	opts = Default()
	if path == "" {
		return opts, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, false, nil
		}
		return nil, false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, true, fmt.Errorf("error unmarshal yaml: %w", err)
	}
	return opts, true, nil
}

func (o *Options) Validate() error {
	v := validator.New()
	if err := v.Struct(o); err != nil {
		return err
	}
	return nil
}

func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

func (o *Options) ProbeTimeout() time.Duration {
	return time.Duration(o.ProbeTimeoutSeconds) * time.Second
}

func (o *Options) RetryDelay() time.Duration {
	return time.Duration(o.RetryDelayMs) * time.Millisecond
}

// Connections is the cap on concurrent outbound requests. Challenge workers
// and their inner download pools share it, so the worst case stays bounded
// instead of growing with the square of MaxWorkers.
func (o *Options) Connections() int {
	if o.MaxConnections > 0 {
		return o.MaxConnections
	}
	return 2 * o.MaxWorkers
}
