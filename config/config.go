package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	loadEnvOnce sync.Once

	pipelineOnce   sync.Once
	pipelineConfig *PipelineConfig

	redisOnce   sync.Once
	redisConfig *RedisConfig

	minioOnce   sync.Once
	minioConfig *MinioConfig

	serverOnce   sync.Once
	serverConfig *ServerConfig

	ollamaOnce   sync.Once
	ollamaConfig *OllamaConfig
)

// PipelineConfig carries the tunable knobs of the ingestion pipeline.
// The OCR threshold and the confidence floor are deliberately configuration,
// not constants.
type PipelineConfig struct {
	OCRMinCharsPerPage int
	MinConfidence      float64
	OCRTimeout         time.Duration
	GenerationTimeout  time.Duration
	MaxUploadSize      int64
	EmbeddingDim       int
	StatusRetention    time.Duration
	RegistryRetention  time.Duration
}

type RedisConfig struct {
	Addr string
	DB   int
}

type MinioConfig struct {
	AccessKey  string
	SecretKey  string
	Endpoint   string
	UseSSL     bool
	Region     string
	BucketName string
}

type ServerConfig struct {
	Addr        string
	StorageKind string // "minio" or "local"
	LocalDir    string
}

type OllamaConfig struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
}

func loadEnv() {
	loadEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		rootDir := filepath.Dir(filepath.Dir(filename))
		envPath := filepath.Join(rootDir, ".env")

		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, falling back to environment variables", envPath)
		}
	})
}

func GetPipelineConfig() *PipelineConfig {
	pipelineOnce.Do(func() {
		loadEnv()
		pipelineConfig = &PipelineConfig{
			OCRMinCharsPerPage: envInt("OCR_MIN_CHARS_PER_PAGE", 32),
			MinConfidence:      envFloat("MIN_CONFIDENCE_SCORE", 0.70),
			OCRTimeout:         envDuration("OCR_TIMEOUT", 60*time.Second),
			GenerationTimeout:  envDuration("GENERATION_TIMEOUT", 90*time.Second),
			MaxUploadSize:      int64(envInt("MAX_UPLOAD_SIZE", 50*1024*1024)),
			EmbeddingDim:       envInt("EMBEDDING_DIM", 384),
			StatusRetention:    envDuration("STATUS_RETENTION", 24*time.Hour),
			RegistryRetention:  envDuration("REGISTRY_RETENTION", time.Hour),
		}
	})
	return pipelineConfig
}

func GetRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		loadEnv()
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		redisConfig = &RedisConfig{
			Addr: addr,
			DB:   envInt("REDIS_DB", 0),
		}
	})
	return redisConfig
}

func GetMinioConfig() *MinioConfig {
	minioOnce.Do(func() {
		loadEnv()
		minioConfig = &MinioConfig{
			AccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			Endpoint:   os.Getenv("MINIO_ENDPOINT"),
			UseSSL:     false,
			Region:     os.Getenv("MINIO_REGION"),
			BucketName: os.Getenv("MINIO_BUCKET_NAME"),
		}
	})
	return minioConfig
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		addr := os.Getenv("SERVER_ADDR")
		if addr == "" {
			addr = ":8080"
		}
		kind := os.Getenv("STORAGE_KIND")
		if kind == "" {
			kind = "local"
		}
		dir := os.Getenv("LOCAL_STORAGE_DIR")
		if dir == "" {
			dir = "data/uploads"
		}
		serverConfig = &ServerConfig{
			Addr:        addr,
			StorageKind: kind,
			LocalDir:    dir,
		}
	})
	return serverConfig
}

func GetOllamaConfig() *OllamaConfig {
	ollamaOnce.Do(func() {
		loadEnv()
		endpoint := os.Getenv("OLLAMA_ENDPOINT")
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.1"
		}
		ollamaConfig = &OllamaConfig{
			Endpoint:    endpoint,
			Model:       model,
			MaxTokens:   envInt("OLLAMA_MAX_TOKENS", 4096),
			Temperature: envFloat("OLLAMA_TEMPERATURE", 0.7),
		}
	})
	return ollamaConfig
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
