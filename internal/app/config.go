package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/craftwise/craftwise-backend/internal/engine/retrieval"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/utils"
)

// Config is the process configuration. Defaults are overlaid by an
// optional YAML file (CONFIG_FILE, default ./config.yaml), then by
// environment variables. Env always wins so deploys can pin a file and
// still override per-instance.
type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		LogMode string `yaml:"log_mode"`
	} `yaml:"server"`

	Auth struct {
		JWTSecretKey           string `yaml:"jwt_secret_key"`
		AccessTokenTTLSeconds  int    `yaml:"access_token_ttl_seconds"`
		RefreshTokenTTLSeconds int    `yaml:"refresh_token_ttl_seconds"`
	} `yaml:"auth"`

	Retrieval struct {
		K                int     `yaml:"k"`
		MaxCandidates    int     `yaml:"max_candidates"`
		SimilarityWeight float64 `yaml:"similarity_weight"`
		AttributeWeight  float64 `yaml:"attribute_weight"`
		ConfidenceWeight float64 `yaml:"confidence_weight"`
		RetryBackoffMS   int     `yaml:"retry_backoff_ms"`
	} `yaml:"retrieval"`

	Index struct {
		MaxCentroids int `yaml:"max_centroids"`
		Probes       int `yaml:"probes"`
	} `yaml:"index"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.LogMode = "development"
	cfg.Auth.JWTSecretKey = "defaultsecret"
	cfg.Auth.AccessTokenTTLSeconds = 3600
	cfg.Auth.RefreshTokenTTLSeconds = 86400
	cfg.Retrieval.K = retrieval.DefaultK
	cfg.Retrieval.MaxCandidates = retrieval.DefaultMaxCandidates
	cfg.Retrieval.SimilarityWeight = retrieval.DefaultWeights.Similarity
	cfg.Retrieval.AttributeWeight = retrieval.DefaultWeights.AttrMatch
	cfg.Retrieval.ConfidenceWeight = retrieval.DefaultWeights.Confidence
	cfg.Retrieval.RetryBackoffMS = int(retrieval.DefaultRetryBackoff / time.Millisecond)
	return cfg
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	case os.IsNotExist(err) && !explicit:
		// No file is fine; env and defaults carry the config.
	default:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.Server.Port = utils.GetEnv("PORT", cfg.Server.Port, log)
	cfg.Server.LogMode = utils.GetEnv("LOG_MODE", cfg.Server.LogMode, log)
	cfg.Auth.JWTSecretKey = utils.GetEnv("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey, log)
	cfg.Auth.AccessTokenTTLSeconds = utils.GetEnvAsInt("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTLSeconds, log)
	cfg.Auth.RefreshTokenTTLSeconds = utils.GetEnvAsInt("REFRESH_TOKEN_TTL", cfg.Auth.RefreshTokenTTLSeconds, log)
	cfg.Retrieval.K = utils.GetEnvAsInt("RETRIEVAL_K", cfg.Retrieval.K, log)
	cfg.Retrieval.MaxCandidates = utils.GetEnvAsInt("RETRIEVAL_MAX_CANDIDATES", cfg.Retrieval.MaxCandidates, log)
	cfg.Retrieval.SimilarityWeight = utils.GetEnvAsFloat("RETRIEVAL_SIMILARITY_WEIGHT", cfg.Retrieval.SimilarityWeight, log)
	cfg.Retrieval.AttributeWeight = utils.GetEnvAsFloat("RETRIEVAL_ATTRIBUTE_WEIGHT", cfg.Retrieval.AttributeWeight, log)
	cfg.Retrieval.ConfidenceWeight = utils.GetEnvAsFloat("RETRIEVAL_CONFIDENCE_WEIGHT", cfg.Retrieval.ConfidenceWeight, log)
	cfg.Retrieval.RetryBackoffMS = utils.GetEnvAsInt("RETRIEVAL_RETRY_BACKOFF_MS", cfg.Retrieval.RetryBackoffMS, log)
	cfg.Index.MaxCentroids = utils.GetEnvAsInt("INDEX_MAX_CENTROIDS", cfg.Index.MaxCentroids, log)
	cfg.Index.Probes = utils.GetEnvAsInt("INDEX_PROBES", cfg.Index.Probes, log)

	return cfg, nil
}

// RetrievalConfig converts the flat config into the engine's shape.
func (c Config) RetrievalConfig() retrieval.Config {
	return retrieval.Config{
		K:             c.Retrieval.K,
		MaxCandidates: c.Retrieval.MaxCandidates,
		Weights: retrieval.Weights{
			Similarity: c.Retrieval.SimilarityWeight,
			AttrMatch:  c.Retrieval.AttributeWeight,
			Confidence: c.Retrieval.ConfidenceWeight,
		},
		RetryBackoff: time.Duration(c.Retrieval.RetryBackoffMS) * time.Millisecond,
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTLSeconds) * time.Second
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTokenTTLSeconds) * time.Second
}
