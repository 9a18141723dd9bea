package config

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200

	defaultTopK      = 4
	defaultThreshold = 0.7

	defaultFallback = "I don't know."

	defaultProvider = "ollama"
	defaultUpstream = "http://localhost:11434"

	defaultEmbeddingModel       = "nomic-embed-text"
	defaultEmbeddingParallelism = 4

	defaultLLMModel = "llama3.2"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "docqa"

	defaultCSVTextColumn = "prompt"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "docqa.events"

	defaultSampleRate = 1.0
)

var defaultSeparators = []string{"\n\n", "\n", " "}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	threshold := defaultThreshold

	return &Config{
		Version: CurrentV,
		Chunking: ChunkingConfig{
			Size:       defaultChunkSize,
			Overlap:    defaultChunkOverlap,
			Separators: append([]string(nil), defaultSeparators...),
		},
		Retrieval: RetrievalConfig{
			TopK:      defaultTopK,
			Threshold: &threshold,
		},
		Prompt: PromptConfig{
			Fallback: defaultFallback,
		},
		Embedding: EmbeddingConfig{
			Provider:    defaultProvider,
			Target:      defaultUpstream,
			Model:       defaultEmbeddingModel,
			Parallelism: defaultEmbeddingParallelism,
		},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Target:   defaultUpstream,
			Model:    defaultLLMModel,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Loader: LoaderConfig{
			CSVTextColumn: defaultCSVTextColumn,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Telemetry: TelemetryConfig{
			SampleRate: defaultSampleRate,
		},
	}
}
