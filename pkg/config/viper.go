package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/docqa/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), loads .env files and binds environment
// variables with the DOCQA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DOCQA_LLM_PROVIDER, DOCQA_RETRIEVAL_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := loadDotEnv(target); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("DOCQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// loadDotEnv loads ./.env and then <target>/.env. Variables already present
// in the environment are never overwritten.
func loadDotEnv(target string) error {
	files := []string{".env"}
	if target != "" {
		files = append(files, filepath.Join(target, ".env"))
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
// Provider targets and models are left out: they only apply to the default
// provider and are filled in by FromViper.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("chunking.size", d.Chunking.Size)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)
	v.SetDefault("chunking.separators", d.Chunking.Separators)

	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("retrieval.threshold", d.Retrieval.ThresholdValue())

	v.SetDefault("prompt.template", d.Prompt.Template)
	v.SetDefault("prompt.fallback", d.Prompt.Fallback)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.cache_ttl", d.Embedding.CacheTTL)
	v.SetDefault("embedding.parallelism", d.Embedding.Parallelism)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	v.SetDefault("loader.csv_text_column", d.Loader.CSVTextColumn)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)
}

// FromViper reads the effective configuration out of v, after flags, env
// and the config file have been layered over the defaults.
func FromViper(v *viper.Viper) *Config {
	threshold := v.GetFloat64("retrieval.threshold")

	cfg := &Config{
		Version: v.GetInt("version"),
		Chunking: ChunkingConfig{
			Size:       v.GetInt("chunking.size"),
			Overlap:    v.GetInt("chunking.overlap"),
			Separators: v.GetStringSlice("chunking.separators"),
		},
		Retrieval: RetrievalConfig{
			TopK:      v.GetInt("retrieval.top_k"),
			Threshold: &threshold,
		},
		Prompt: PromptConfig{
			Template: v.GetString("prompt.template"),
			Fallback: v.GetString("prompt.fallback"),
		},
		Embedding: EmbeddingConfig{
			Provider:    v.GetString("embedding.provider"),
			Target:      v.GetString("embedding.target"),
			Model:       v.GetString("embedding.model"),
			Dimensions:  v.GetUint("embedding.dimensions"),
			CacheTTL:    v.GetString("embedding.cache_ttl"),
			Parallelism: v.GetInt("embedding.parallelism"),
		},
		LLM: LLMConfig{
			Provider:  v.GetString("llm.provider"),
			Target:    v.GetString("llm.target"),
			Model:     v.GetString("llm.model"),
			MaxTokens: v.GetInt("llm.max_tokens"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Loader: LoaderConfig{
			CSVTextColumn: v.GetString("loader.csv_text_column"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			SampleRate:   v.GetFloat64("telemetry.sample_rate"),
		},
	}

	applyDefaults(cfg)
	return cfg
}
