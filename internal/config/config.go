package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "VERIDICT_CONFIG"
	artifactDirEnv  = "VERIDICT_ARTIFACT_DIR"
	listenAddrEnv   = "VERIDICT_LISTEN_ADDR"
	geminiAPIKeyEnv = "GEMINI_API_KEY"
	geminiModelEnv  = "GEMINI_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Training  TrainingConfig  `yaml:"training"`
	Input     InputConfig     `yaml:"input"`
	History   HistoryConfig   `yaml:"history"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// ArtifactsConfig points at the serialized model/vectorizer/metrics files.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// TrainingConfig controls the offline training pipeline.
type TrainingConfig struct {
	DataPath    string  `yaml:"dataPath"`
	MaxFeatures int     `yaml:"maxFeatures"`
	MinDocFreq  int     `yaml:"minDocFreq"`
	TrainRatio  float64 `yaml:"trainRatio"`
	ValRatio    float64 `yaml:"valRatio"`
	TestRatio   float64 `yaml:"testRatio"`
	Seed        int64   `yaml:"seed"`
}

// InputConfig bounds what a single prediction request may contain.
type InputConfig struct {
	MinChars int `yaml:"minChars"`
	MaxWords int `yaml:"maxWords"`
}

// HistoryConfig describes the prediction-history database.
type HistoryConfig struct {
	DBPath string `yaml:"dbPath"`
}

// AnalyzerConfig defines how to contact the secondary LLM analyzer.
type AnalyzerConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Model         string `yaml:"model"`
	APIKey        string `yaml:"apiKey"`
	TimeoutSec    int    `yaml:"timeoutSec"`
	CacheCapacity int    `yaml:"cacheCapacity"`
	Workers       int    `yaml:"workers"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(artifactDirEnv); v != "" {
		c.Artifacts.Dir = v
	}
	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Analyzer.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}

	if override.Artifacts.Dir != "" {
		base.Artifacts.Dir = override.Artifacts.Dir
	}

	if override.Training.DataPath != "" {
		base.Training.DataPath = override.Training.DataPath
	}
	if override.Training.MaxFeatures > 0 {
		base.Training.MaxFeatures = override.Training.MaxFeatures
	}
	if override.Training.MinDocFreq > 0 {
		base.Training.MinDocFreq = override.Training.MinDocFreq
	}
	if override.Training.TrainRatio > 0 {
		base.Training.TrainRatio = override.Training.TrainRatio
		base.Training.ValRatio = override.Training.ValRatio
		base.Training.TestRatio = override.Training.TestRatio
	}
	if override.Training.Seed != 0 {
		base.Training.Seed = override.Training.Seed
	}

	if override.Input.MinChars > 0 {
		base.Input.MinChars = override.Input.MinChars
	}
	if override.Input.MaxWords > 0 {
		base.Input.MaxWords = override.Input.MaxWords
	}

	if override.History.DBPath != "" {
		base.History.DBPath = override.History.DBPath
	}

	if override.Analyzer.Endpoint != "" {
		base.Analyzer.Endpoint = override.Analyzer.Endpoint
	}
	if override.Analyzer.Model != "" {
		base.Analyzer.Model = override.Analyzer.Model
	}
	if override.Analyzer.APIKey != "" {
		base.Analyzer.APIKey = override.Analyzer.APIKey
	}
	if override.Analyzer.TimeoutSec > 0 {
		base.Analyzer.TimeoutSec = override.Analyzer.TimeoutSec
	}
	if override.Analyzer.CacheCapacity > 0 {
		base.Analyzer.CacheCapacity = override.Analyzer.CacheCapacity
	}
	if override.Analyzer.Workers > 0 {
		base.Analyzer.Workers = override.Analyzer.Workers
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server:    ServerConfig{ListenAddr: ":8080"},
		Artifacts: ArtifactsConfig{Dir: "models"},
		Training: TrainingConfig{
			DataPath:    "data/news_dataset.csv",
			MaxFeatures: 10000,
			MinDocFreq:  2,
			TrainRatio:  0.70,
			ValRatio:    0.15,
			TestRatio:   0.15,
			Seed:        42,
		},
		Input: InputConfig{
			MinChars: 10,
			MaxWords: 5000,
		},
		History: HistoryConfig{DBPath: "models/history.db"},
		Analyzer: AnalyzerConfig{
			Endpoint:      "https://generativelanguage.googleapis.com/v1beta/models",
			Model:         "gemini-2.0-flash",
			APIKey:        "",
			TimeoutSec:    25,
			CacheCapacity: 50,
			Workers:       2,
		},
	}
}
