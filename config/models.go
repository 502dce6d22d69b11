package config

// Config holds the configuration of the application.
// Use LoadConfig to create a new instance.
type Config struct {
	Embeddings  EmbeddingsConfig  `mapstructure:"embeddings"   json:"embeddings"`
	LLM         LLM               `mapstructure:"llm"          json:"llm"`
	Chunker     ChunkerConfig     `mapstructure:"chunker"      json:"chunker"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store" json:"vector_store"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"    json:"retrieval"`
	Rerank      RerankConfig      `mapstructure:"rerank"       json:"rerank"`
	Prompts     PromptsConfig     `mapstructure:"prompts"      json:"prompts"`
	Server      ServerConfig      `mapstructure:"server"       json:"server"`
	Log         LogConfig         `mapstructure:"log"          json:"log"`
}

// EmbeddingsConfig configures the embedding provider and the batching client.
type EmbeddingsConfig struct {
	// Service is "openai" (any OpenAI compatible API, Mistral included) or "local".
	Service string `mapstructure:"service"  json:"service"  validate:"oneof=openai local"`
	Model   string `mapstructure:"model"    json:"model"`
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// APIKey is loaded from ENV not config file.
	APIKey     string `mapstructure:"api_key"    json:"-"                    jsonschema:"-"`
	ServerURL  string `mapstructure:"server_url" json:"server_url,omitempty"`
	Dimensions int    `mapstructure:"dimensions" json:"dimensions"           validate:"gte=0"`
	BatchSize  int    `mapstructure:"batch_size" json:"batch_size"           validate:"gt=0"`
	// BatchDelayMS is the pause between successful batches.
	BatchDelayMS    int         `mapstructure:"batch_delay_ms"    json:"batch_delay_ms"    validate:"gte=0"`
	RequestTimeoutS int         `mapstructure:"request_timeout_s" json:"request_timeout_s" validate:"gt=0"`
	Retry           RetryConfig `mapstructure:"retry"             json:"retry"`
}

type RetryConfig struct {
	MaxAttempts int     `mapstructure:"max_attempts"  json:"max_attempts"  validate:"gte=1"`
	BaseDelayMS int     `mapstructure:"base_delay_ms" json:"base_delay_ms" validate:"gte=0"`
	Multiplier  float32 `mapstructure:"multiplier"    json:"multiplier"    validate:"gte=1"`
	MaxDelayMS  int     `mapstructure:"max_delay_ms"  json:"max_delay_ms"  validate:"gte=0"`
}

type LLM struct {
	Service string `mapstructure:"service"  json:"service"            validate:"oneof=openai"`
	Model   string `mapstructure:"model"    json:"model"              validate:"required"`
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// APIKey is loaded from ENV not config file.
	APIKey           string  `mapstructure:"api_key"            json:"-"                  jsonschema:"-"`
	Temperature      float32 `mapstructure:"temperature"        json:"temperature"        validate:"gte=0,lte=2"`
	MaxContextTokens int     `mapstructure:"max_context_tokens" json:"max_context_tokens" validate:"gte=0"`
	RequestTimeoutS  int     `mapstructure:"request_timeout_s"  json:"request_timeout_s"  validate:"gt=0"`
}

type ChunkerConfig struct {
	// Strategy is "recursive" (fixed size) or "session" (conversation gaps).
	Strategy     string `mapstructure:"strategy"      json:"strategy"      validate:"oneof=recursive session"`
	ChunkSize    int    `mapstructure:"chunk_size"    json:"chunk_size"    validate:"gt=0"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" json:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	// SessionGapMinutes is the largest gap between two messages of one session.
	SessionGapMinutes int `mapstructure:"session_gap_minutes" json:"session_gap_minutes" validate:"gte=0"`
}

type VectorStoreConfig struct {
	Type            string         `mapstructure:"type"              json:"type"              validate:"oneof=qdrant postgres bolt memory"`
	UpsertBatchSize int            `mapstructure:"upsert_batch_size" json:"upsert_batch_size" validate:"gt=0"`
	Qdrant          QdrantConfig   `mapstructure:"qdrant"            json:"qdrant"`
	Postgres        PostgresConfig `mapstructure:"postgres"          json:"postgres"`
	Bolt            BoltConfig     `mapstructure:"bolt"              json:"bolt"`
}

type QdrantConfig struct {
	URL string `mapstructure:"url" json:"url"`
	// APIKey is loaded from ENV not config file.
	APIKey          string `mapstructure:"api_key"           json:"-"                 jsonschema:"-"`
	RequestTimeoutS int    `mapstructure:"request_timeout_s" json:"request_timeout_s"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" json:"-" jsonschema:"-"`
}

type BoltConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

type RetrievalConfig struct {
	DefaultCollection string `mapstructure:"default_collection" json:"default_collection" validate:"required"`
	SearchLimit       int    `mapstructure:"search_limit"       json:"search_limit"       validate:"gte=1,lte=20"`
	RAGLimit          int    `mapstructure:"rag_limit"          json:"rag_limit"          validate:"gte=1,lte=10"`
}

type RerankConfig struct {
	// Service is "http" for a cross-encoder server or "none" to keep vector order.
	Service   string `mapstructure:"service"   json:"service"         validate:"oneof=http none"`
	URL       string `mapstructure:"url"       json:"url,omitempty"`
	Model     string `mapstructure:"model"     json:"model,omitempty"`
	Fusion    string `mapstructure:"fusion"    json:"fusion"          validate:"oneof=best_per_probe all_candidates"`
	Delimiter string `mapstructure:"delimiter" json:"delimiter"`
}

type PromptsConfig struct {
	System       string   `mapstructure:"system"        json:"system,omitempty"`
	Probes       []string `mapstructure:"probes"        json:"probes,omitempty"`
	DefaultQuery string   `mapstructure:"default_query" json:"default_query,omitempty"`
	UserTemplate string   `mapstructure:"user_template" json:"user_template,omitempty"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port" validate:"gt=0"`
	// MaxUploadMB caps transcript uploads.
	MaxUploadMB int `mapstructure:"max_upload_mb" json:"max_upload_mb" validate:"gt=0"`
	// CustomHeaders are added to every response. Values prefixed with "env:"
	// are read from the named environment variable.
	CustomHeaders map[string]string `mapstructure:"custom_headers" json:"custom_headers,omitempty"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}
