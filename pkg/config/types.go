package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent docqa configuration stored as config.toml
// in the .docqa/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Prompt      PromptConfig      `toml:"prompt"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Loader      LoaderConfig      `toml:"loader"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// ChunkingConfig controls how documents are split. Sizes are in characters.
type ChunkingConfig struct {
	Size       int      `toml:"size,omitempty"`
	Overlap    int      `toml:"overlap,omitempty"`
	Separators []string `toml:"separators,omitempty"`
}

// RetrievalConfig controls how many chunks a question retrieves.
// Threshold is a pointer so that an explicit 0 survives default merging.
type RetrievalConfig struct {
	TopK      int      `toml:"top_k,omitempty"`
	Threshold *float64 `toml:"threshold,omitempty"`
}

// PromptConfig holds the prompt template and fallback answer.
type PromptConfig struct {
	Template string `toml:"template,omitempty"`
	Fallback string `toml:"fallback,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `toml:"provider,omitempty"`
	Target      string `toml:"target,omitempty"`
	Model       string `toml:"model,omitempty"`
	Dimensions  uint   `toml:"dimensions,omitempty"`
	CacheTTL    string `toml:"cache_ttl,omitempty"`
	Parallelism int    `toml:"parallelism,omitempty"`
}

// LLMConfig holds answer generator settings.
type LLMConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	MaxTokens int    `toml:"max_tokens,omitempty"`
}

// VectorStoreConfig holds index store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// LoaderConfig holds document loading settings.
type LoaderConfig struct {
	CSVTextColumn string `toml:"csv_text_column,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// docqa server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventStreamConfig holds event publishing settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `toml:"otlp_endpoint,omitempty"`
	SampleRate   float64 `toml:"sample_rate,omitempty"`
}

// BrokerList splits the comma separated broker list.
func (c EventStreamConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// CacheDuration parses CacheTTL. Empty means no cache.
func (c EmbeddingConfig) CacheDuration() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid embedding.cache_ttl: %w", err)
	}
	return d, nil
}

// ThresholdValue returns the configured threshold, or the default.
func (c RetrievalConfig) ThresholdValue() float64 {
	if c.Threshold == nil {
		return defaultThreshold
	}
	return *c.Threshold
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"chunking.size":    intKey("chunking.size", func(c *Config) *int { return &c.Chunking.Size }),
	"chunking.overlap": intKey("chunking.overlap", func(c *Config) *int { return &c.Chunking.Overlap }),
	"chunking.separators": {
		get: func(c *Config) string { return strconv.Quote(strings.Join(c.Chunking.Separators, ",")) },
		set: func(c *Config, v string) error {
			unquoted, err := strconv.Unquote(v)
			if err != nil {
				unquoted = v
			}
			c.Chunking.Separators = nil
			for _, s := range strings.Split(unquoted, ",") {
				if s != "" {
					c.Chunking.Separators = append(c.Chunking.Separators, s)
				}
			}
			return nil
		},
	},
	"retrieval.top_k": intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),
	"retrieval.threshold": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Retrieval.ThresholdValue(), 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for retrieval.threshold: %w", err)
			}
			if f < -1 || f > 1 {
				return fmt.Errorf("invalid value for retrieval.threshold: %v is outside [-1, 1]", f)
			}
			c.Retrieval.Threshold = &f
			return nil
		},
	},
	"prompt.template": stringKey(func(c *Config) *string { return &c.Prompt.Template }),
	"prompt.fallback": stringKey(func(c *Config) *string { return &c.Prompt.Fallback }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.cache_ttl": {
		get: func(c *Config) string { return c.Embedding.CacheTTL },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for embedding.cache_ttl: %w", err)
				}
			}
			c.Embedding.CacheTTL = v
			return nil
		},
	},
	"embedding.parallelism": intKey("embedding.parallelism", func(c *Config) *int { return &c.Embedding.Parallelism }),

	"llm.provider":   stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.target":     stringKey(func(c *Config) *string { return &c.LLM.Target }),
	"llm.model":      stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.max_tokens": intKey("llm.max_tokens", func(c *Config) *int { return &c.LLM.MaxTokens }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"loader.csv_text_column": stringKey(func(c *Config) *string { return &c.Loader.CSVTextColumn }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"telemetry.otlp_endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),
	"telemetry.sample_rate": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Telemetry.SampleRate, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for telemetry.sample_rate: %w", err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("invalid value for telemetry.sample_rate: %v is outside [0, 1]", f)
			}
			c.Telemetry.SampleRate = f
			return nil
		},
	},
}
