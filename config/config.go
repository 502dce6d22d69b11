package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/chatrag/chatrag/internal"
)

const EnvPrefix = "CHATRAG"

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

var validate = validator.New()

// defaults mirrors the values the pipeline was tuned with. Every key is registered
// so that AutomaticEnv can override it on Unmarshal.
var defaults = map[string]any{
	"embeddings.service":             "openai",
	"embeddings.model":               "mistral-embed",
	"embeddings.base_url":            "https://api.mistral.ai/v1",
	"embeddings.server_url":          "",
	"embeddings.dimensions":          0,
	"embeddings.batch_size":          23,
	"embeddings.batch_delay_ms":      2000,
	"embeddings.request_timeout_s":   30,
	"embeddings.retry.max_attempts":  5,
	"embeddings.retry.base_delay_ms": 4000,
	"embeddings.retry.multiplier":    2,
	"embeddings.retry.max_delay_ms":  60000,

	"llm.service":            "openai",
	"llm.model":              "mistral-large-latest",
	"llm.base_url":           "https://api.mistral.ai/v1",
	"llm.temperature":        0.3,
	"llm.max_context_tokens": 0,
	"llm.request_timeout_s":  60,

	"chunker.strategy":            "session",
	"chunker.chunk_size":          1000,
	"chunker.chunk_overlap":       200,
	"chunker.session_gap_minutes": 20,

	"vector_store.type":                     "qdrant",
	"vector_store.upsert_batch_size":        20,
	"vector_store.qdrant.url":               "http://localhost:6333",
	"vector_store.qdrant.request_timeout_s": 30,
	"vector_store.postgres.dsn":             "",
	"vector_store.bolt.path":                "chatrag.db",

	"retrieval.default_collection": "default_collection",
	"retrieval.search_limit":       5,
	"retrieval.rag_limit":          3,

	"rerank.service":   "http",
	"rerank.url":       "http://localhost:8080",
	"rerank.model":     "cross-encoder/ms-marco-MiniLM-L-6-v2",
	"rerank.fusion":    "best_per_probe",
	"rerank.delimiter": "\n-----------------------------------------------\n",

	"prompts.system":        "",
	"prompts.probes":        []string{},
	"prompts.default_query": "",
	"prompts.user_template": "",

	"server.host":          "0.0.0.0",
	"server.port":          8000,
	"server.max_upload_mb": 20,

	"log.level": "info",
}

// envAliases lets the provider keys be supplied under their conventional names.
var envAliases = map[string][]string{
	"embeddings.api_key":          {EnvPrefix + "_EMBEDDINGS_API_KEY", "MISTRAL_API_KEY", "OPENAI_API_KEY"},
	"llm.api_key":                 {EnvPrefix + "_LLM_API_KEY", "MISTRAL_API_KEY", "OPENAI_API_KEY"},
	"vector_store.qdrant.api_key": {EnvPrefix + "_VECTOR_STORE_QDRANT_API_KEY", "QDRANT_API_KEY"},
}

// LoadConfig loads the config file and ENV variables into a Config struct.
// A missing config file is not an error when no path was given; defaults and ENV apply.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("no config file found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for key, envs := range envAliases {
		input := append([]string{key}, envs...)
		if err := v.BindEnv(input...); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct level constraints and the cross field rules that
// depend on which services are selected.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch {
	case cfg.Embeddings.Service == "local" && cfg.Embeddings.ServerURL == "":
		return errors.New("embeddings.server_url must be set when embeddings.service is local")
	case cfg.VectorStore.Type == "postgres" && cfg.VectorStore.Postgres.DSN == "":
		return errors.New("vector_store.postgres.dsn must be set")
	case cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant.URL == "":
		return errors.New("vector_store.qdrant.url must be set")
	case cfg.VectorStore.Type == "bolt" && cfg.VectorStore.Bolt.Path == "":
		return errors.New("vector_store.bolt.path must be set")
	case cfg.Rerank.Service == "http" && cfg.Rerank.URL == "":
		return errors.New("rerank.url must be set when rerank.service is http")
	}

	return nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Debug("Log level set to: ", level)
}
