package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	SQLite      SQLiteConfig
	Milvus      MilvusConfig
	Redis       RedisConfig
	OpenAI      OpenAIConfig
	Ollama      OllamaConfig
	HuggingFace HuggingFaceConfig
	Arbiter     ArbiterConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type MilvusConfig struct {
	Enabled        bool
	Endpoint       string
	CollectionName string
	VectorDim      int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxTokens      int
}

type OllamaConfig struct {
	Endpoint string
	Model    string
}

type HuggingFaceConfig struct {
	APIKey       string
	Model        string
	NLIModel     string
	NLIEndpoint  string
	NLIThreshold float64
}

// ArbiterConfig holds the dispatch and convergence tuning knobs.
type ArbiterConfig struct {
	MaxRounds          int
	CallTimeoutSec     int
	AgreementThreshold float64
	ClusterThreshold   float64
	PromptRegistryPath string
	DefaultPromptID    string
	DefaultVersion     string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/llm-arbiter")

	viper.SetEnvPrefix("ARBITER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/arbiter.db")

	viper.SetDefault("milvus.enabled", false)
	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "arbiter_claims")
	viper.SetDefault("milvus.vectorDim", 16)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("openai.maxTokens", 1024)

	viper.SetDefault("ollama.endpoint", "http://localhost:11434/api/generate")
	viper.SetDefault("ollama.model", "llama3.2")

	viper.SetDefault("huggingface.model", "bigscience/bloom-560m")
	viper.SetDefault("huggingface.nliModel", "facebook/bart-large-mnli")
	viper.SetDefault("huggingface.nliThreshold", 0.6)

	viper.SetDefault("arbiter.maxRounds", 3)
	viper.SetDefault("arbiter.callTimeoutSec", 180)
	viper.SetDefault("arbiter.agreementThreshold", 0.8)
	viper.SetDefault("arbiter.clusterThreshold", 0.5)
	viper.SetDefault("arbiter.promptRegistryPath", "./prompts/prompt_registry.yaml")
	viper.SetDefault("arbiter.defaultPromptID", "answerer_v1")
	viper.SetDefault("arbiter.defaultVersion", "v1")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
