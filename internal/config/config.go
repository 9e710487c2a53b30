// Package config resolves the numeric knobs spec.md leaves
// implementation-defined (cache shard count/size, debounce windows, fuzzy
// fallback threshold, ranking weights): an optional config.toml
// (github.com/BurntSushi/toml, grounded on theanswer42-bt-go's config
// loading), overridable by environment variables, with an optional local
// .env loaded first (github.com/joho/godotenv, grounded on
// sarangpurandare-buildmychat) for development overrides.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/convoindex/convoindex/internal/logx"
)

// Config holds every env-overridable knob named across spec.md §4.4/§9.
type Config struct {
	DataDir string `toml:"data_dir"`

	CacheShards       int `toml:"cache_shards"`
	CacheShardSize    int `toml:"cache_shard_size"`
	CacheGlobalCap    int `toml:"cache_global_cap"`
	WarmDebounceMS    int `toml:"warm_debounce_ms"`
	WatchDebounceMS   int `toml:"watch_debounce_ms"`
	ReaderReloadMS    int `toml:"reader_reload_ms"`
	FuzzyThreshold    int `toml:"fuzzy_threshold"`
	EdgeNgramMax      int `toml:"edge_ngram_max"`
	ConsistencyThresh int `toml:"consistency_threshold"`

	BatchCommitCount int `toml:"batch_commit_count"`
	BatchCommitMS    int `toml:"batch_commit_ms"`

	RankFallbackPenalty float64 `toml:"rank_fallback_penalty"`
	RankRegexPenalty    float64 `toml:"rank_regex_penalty"`
	RankBalancedRelWt   float64 `toml:"rank_balanced_relevance_weight"`
	RankBalancedTimeWt  float64 `toml:"rank_balanced_time_weight"`
	RankDecayDays       float64 `toml:"rank_decay_days"`
}

// Defaults returns the pinned defaults from DESIGN.md's Open Question
// decisions.
func Defaults() Config {
	return Config{
		CacheShards:         8,
		CacheShardSize:      256,
		CacheGlobalCap:      2048,
		WarmDebounceMS:      120,
		WatchDebounceMS:     250,
		ReaderReloadMS:      300,
		FuzzyThreshold:      5,
		EdgeNgramMax:        15,
		ConsistencyThresh:   50,
		BatchCommitCount:    200,
		BatchCommitMS:       500,
		RankFallbackPenalty: 0.5,
		RankRegexPenalty:    0.75,
		RankBalancedRelWt:   0.6,
		RankBalancedTimeWt:  0.4,
		RankDecayDays:       30,
	}
}

// Load loads .env (if present), then config.toml at configPath (if
// present), then applies CONVOINDEX_* environment overrides, in that
// precedence order (env wins).
func Load(configPath string) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logx.Debug("no .env loaded: %v", err)
	}

	cfg := Defaults()

	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil && !os.IsNotExist(err) {
			logx.Warn("failed to parse %s: %v", configPath, err)
		}
	}

	applyEnvInt(&cfg.CacheShards, "CONVOINDEX_CACHE_SHARDS")
	applyEnvInt(&cfg.CacheShardSize, "CONVOINDEX_CACHE_SHARD_SIZE")
	applyEnvInt(&cfg.CacheGlobalCap, "CONVOINDEX_CACHE_GLOBAL_CAP")
	applyEnvInt(&cfg.WarmDebounceMS, "CONVOINDEX_WARM_DEBOUNCE_MS")
	applyEnvInt(&cfg.WatchDebounceMS, "CONVOINDEX_WATCH_DEBOUNCE_MS")
	applyEnvInt(&cfg.ReaderReloadMS, "CONVOINDEX_READER_RELOAD_MS")
	applyEnvInt(&cfg.FuzzyThreshold, "CONVOINDEX_FUZZY_THRESHOLD")
	applyEnvInt(&cfg.EdgeNgramMax, "CONVOINDEX_EDGE_NGRAM_MAX")
	applyEnvInt(&cfg.ConsistencyThresh, "CONVOINDEX_CONSISTENCY_THRESHOLD")
	applyEnvInt(&cfg.BatchCommitCount, "CONVOINDEX_BATCH_COMMIT_COUNT")
	applyEnvInt(&cfg.BatchCommitMS, "CONVOINDEX_BATCH_COMMIT_MS")
	applyEnvFloat(&cfg.RankFallbackPenalty, "CONVOINDEX_RANK_FALLBACK_PENALTY")
	applyEnvFloat(&cfg.RankRegexPenalty, "CONVOINDEX_RANK_REGEX_PENALTY")
	applyEnvFloat(&cfg.RankBalancedRelWt, "CONVOINDEX_RANK_BALANCED_RELEVANCE_WEIGHT")
	applyEnvFloat(&cfg.RankBalancedTimeWt, "CONVOINDEX_RANK_BALANCED_TIME_WEIGHT")
	applyEnvFloat(&cfg.RankDecayDays, "CONVOINDEX_RANK_DECAY_DAYS")

	if v := os.Getenv("CONVOINDEX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	return cfg
}

func applyEnvInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	} else {
		logx.Warn("ignoring invalid %s=%q: %v", key, v, err)
	}
}

func applyEnvFloat(dst *float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	} else {
		logx.Warn("ignoring invalid %s=%q: %v", key, v, err)
	}
}
