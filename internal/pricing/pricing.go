// Package pricing estimates USD cost for model invocations from a yaml price
// table (config/models.yaml). Prices are per 1K tokens, split input/output,
// with a combined default for unknown models.
package pricing

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type config struct {
	Pricing struct {
		Defaults struct {
			CombinedPer1K float64 `yaml:"combined_per_1k"`
		} `yaml:"defaults"`
		Models map[string]struct {
			InputPer1K  float64 `yaml:"input_per_1k"`
			OutputPer1K float64 `yaml:"output_per_1k"`
		} `yaml:"models"`
	} `yaml:"pricing"`
}

var (
	mu          sync.RWMutex
	loaded      *config
	initialized bool
)

var defaultPaths = []string{
	os.Getenv("MODELS_CONFIG_PATH"),
	"/app/config/models.yaml",
	"./config/models.yaml",
	"../../config/models.yaml",
	"../../../config/models.yaml",
}

// findUpConfig walks parent directories from CWD looking for config/models.yaml,
// which makes pricing resolve from package test directories too.
func findUpConfig() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 6; i++ {
		cand := filepath.Join(wd, "config", "models.yaml")
		if _, err := os.Stat(cand); err == nil {
			return cand, true
		}
		wd = filepath.Dir(wd)
	}
	return "", false
}

func loadLocked() {
	var cfg config
	paths := defaultPaths
	if p, ok := findUpConfig(); ok {
		paths = append(paths, p)
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var tmp config
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			continue
		}
		cfg = tmp
		break
	}
	loaded = &cfg
	initialized = true
}

func get() *config {
	mu.RLock()
	if initialized {
		defer mu.RUnlock()
		return loaded
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		loadLocked()
	}
	return loaded
}

// Reload forces a re-read of the price table (hot-reload hook).
func Reload() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	loadLocked()
}

// defaultCombinedPer1K is the fallback when no table entry matches
// (haiku-class pricing).
const defaultCombinedPer1K = 0.002

// CostUSD estimates the cost of one invocation.
func CostUSD(model string, inputTokens, outputTokens int) float64 {
	cfg := get()
	if m, ok := cfg.Pricing.Models[model]; ok && (m.InputPer1K > 0 || m.OutputPer1K > 0) {
		return float64(inputTokens)/1000.0*m.InputPer1K + float64(outputTokens)/1000.0*m.OutputPer1K
	}
	combined := cfg.Pricing.Defaults.CombinedPer1K
	if combined <= 0 {
		combined = defaultCombinedPer1K
	}
	return float64(inputTokens+outputTokens) / 1000.0 * combined
}
