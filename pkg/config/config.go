package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/utils"
)

const (
	DefaultListen       = "127.0.0.1:8080"
	DefaultAPIPort      = 7171
	DefaultWorkers      = 0 // one scan goroutine per response
	DefaultQueueSize    = 1024
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 5 << 20
)

// Config holds all the settings for a passive scanning session.
type Config struct {
	Listen       string        // proxy listen address
	Target       string        // upstream for reverse mode; empty means forward proxy
	API          bool          // serve the findings API
	APIPort      int           // port for the findings API
	Workers      int           // scan workers; 0 spawns one goroutine per response
	QueueSize    int           // pending scans buffered when Workers > 0
	Timeout      time.Duration // upstream request timeout
	MaxBodyBytes int64         // largest body buffered for scanning
	ScopeFile    string        // file of in-scope host patterns
	Scope        []string      // parsed scope patterns
	OutputFile   string        // plain text report written on shutdown
	OutputJSON   string        // JSON report written on shutdown
	Verbose      bool
	NoColor      bool
}

// Default returns a Config with every field at its default value.
func Default() *Config {
	return &Config{
		Listen:       DefaultListen,
		APIPort:      DefaultAPIPort,
		Workers:      DefaultWorkers,
		QueueSize:    DefaultQueueSize,
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Validate resets out-of-range numbers to their defaults, logging a warning
// for each, loads the scope file and rejects settings that cannot work.
func (c *Config) Validate(log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.Target != "" {
		u, err := url.Parse(c.Target)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid target %q: must be an absolute http(s) URL", c.Target)
		}
	}

	if c.Workers < 0 {
		log.Warnf("Invalid workers value %d, defaulting to %d", c.Workers, DefaultWorkers)
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		log.Warnf("Invalid queue size %d, defaulting to %d", c.QueueSize, DefaultQueueSize)
		c.QueueSize = DefaultQueueSize
	}
	if c.Timeout <= 0 {
		log.Warnf("Invalid timeout %s, defaulting to %s", c.Timeout, DefaultTimeout)
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		log.Warnf("Invalid max body size %d, defaulting to %d", c.MaxBodyBytes, DefaultMaxBodyBytes)
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.API && (c.APIPort <= 0 || c.APIPort > 65535) {
		log.Warnf("Invalid API port %d, defaulting to %d", c.APIPort, DefaultAPIPort)
		c.APIPort = DefaultAPIPort
	}

	if c.ScopeFile != "" {
		if _, err := os.Stat(c.ScopeFile); err != nil {
			return fmt.Errorf("scope file: %w", err)
		}
		scope, err := utils.ReadLines(c.ScopeFile)
		if err != nil {
			return fmt.Errorf("scope file: %w", err)
		}
		if len(scope) == 0 {
			log.Warnf("Scope file %s is empty, all hosts are in scope", c.ScopeFile)
		}
		c.Scope = append(c.Scope, scope...)
	}

	return nil
}
