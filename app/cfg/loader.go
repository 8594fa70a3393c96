package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	ConfigPath string `short:"c" long:"config" env:"BACKUP_CONFIG" default:"config.yaml" description:"Path to the YAML sources configuration"`

	WorkerCount  int `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of parallel asset download workers"`
	SafetyChunks int `long:"safety-chunks" env:"SAFETY_CHUNKS" default:"1" description:"Clean listing chunks required before an incremental crawl stops early"`

	MaxRetries     int `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"HTTP retry attempts for transient failures"`
	RetryBaseDelay int `long:"retry-base-delay" env:"RETRY_BASE_DELAY" default:"1" description:"Initial retry delay in seconds"`
	RetryMaxDelay  int `long:"retry-max-delay" env:"RETRY_MAX_DELAY" default:"30" description:"Maximum retry delay in seconds"`
	ConnectTimeout int `long:"connect-timeout" env:"CONNECT_TIMEOUT" default:"5" description:"HTTP connect timeout in seconds"`
	ReadTimeout    int `long:"read-timeout" env:"READ_TIMEOUT" default:"30" description:"HTTP read timeout in seconds"`

	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		PostURL string `positional-arg-name:"post-url" description:"Download a single post by URL instead of syncing all sources"`
	} `positional-args:"yes"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ConfigPath:     raw.ConfigPath,
		PostURL:        raw.Args.PostURL,
		WorkerCount:    raw.WorkerCount,
		SafetyChunks:   raw.SafetyChunks,
		MaxRetries:     raw.MaxRetries,
		RetryBaseDelay: raw.RetryBaseDelay,
		RetryMaxDelay:  raw.RetryMaxDelay,
		ConnectTimeout: raw.ConnectTimeout,
		ReadTimeout:    raw.ReadTimeout,
		UserAgent:      raw.UserAgent,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
