package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// loadTaskConfig собирает под-конфиги instances.
//
// Источники по приоритету: inline JSON (--config), файл (--config-file),
// список аккаунтов (--account, по одному instance на аккаунт).
// Допускается как {"instances":[...]}, так и голый массив [...].
func loadTaskConfig(inline, file string, accounts []string) (TaskConfig, error) {
	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return TaskConfig{}, fmt.Errorf("read config file: %w", err)
		}
		raw = data
	default:
		cfg := TaskConfig{Instances: make([]map[string]any, len(accounts))}
		for i, account := range accounts {
			cfg.Instances[i] = map[string]any{"account": account}
		}
		return cfg, nil
	}

	var cfg TaskConfig
	if err := json.Unmarshal(raw, &cfg); err == nil && cfg.Instances != nil {
		return cfg, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil {
		return TaskConfig{}, fmt.Errorf("invalid config JSON: %w", err)
	}
	return TaskConfig{Instances: list}, nil
}

// buildStartRequest собирает StartRequest.
// Если instances не задан, берётся число под-конфигов.
func buildStartRequest(instances int, priority uint8, inline, file string, accounts []string) (StartRequest, error) {
	cfg, err := loadTaskConfig(inline, file, accounts)
	if err != nil {
		return StartRequest{}, err
	}

	if instances == 0 {
		instances = len(cfg.Instances)
	}

	return StartRequest{Instances: instances, Config: cfg, Priority: priority}, nil
}
