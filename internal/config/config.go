// Package config reads the shim's settings from the Lambda environment.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/twistlock/lambdashim/internal/engine"
)

// Environment variables read by the shim
const (
	TaskRootVar       = "LAMBDA_TASK_ROOT"
	LayerRootVar      = "TW_LAYER_ROOT"
	HandlerVar        = "ORIGINAL_HANDLER"
	CustomResponseVar = "TW_CUSTOM_RESPONSE"
	BlockQueueVar     = "TW_BLOCK_QUEUE_URL"
	LogLevelVar       = "TW_LOG_LEVEL"
	RegionVar         = "AWS_REGION"
)

// Config holds the cold start settings
type Config struct {
	TaskRoot      string
	LayerRoot     string
	HandlerSpec   string
	BlockQueueURL string
	Region        string
	LogLevel      logrus.Level

	v *viper.Viper
}

// Load reads the environment, and a .env file when one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(LayerRootVar, engine.DefaultLayerRoot)
	v.SetDefault(LogLevelVar, "info")

	lvl, err := logrus.ParseLevel(v.GetString(LogLevelVar))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", LogLevelVar, err)
	}

	return &Config{
		TaskRoot:      v.GetString(TaskRootVar),
		LayerRoot:     v.GetString(LayerRootVar),
		HandlerSpec:   strings.TrimSpace(v.GetString(HandlerVar)),
		BlockQueueURL: v.GetString(BlockQueueVar),
		Region:        v.GetString(RegionVar),
		LogLevel:      lvl,
		v:             v,
	}, nil
}

// Roots returns the candidate module roots in lookup order
func (c *Config) Roots() []string {
	var roots []string
	for _, r := range []string{c.TaskRoot, c.LayerRoot} {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// CustomResponse returns the configured block response, read on every call.
// Any problem reading it yields nil so a block never turns into a crash.
func (c *Config) CustomResponse() json.RawMessage {
	var raw string
	if c.v != nil {
		raw = c.v.GetString(CustomResponseVar)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}
	return json.RawMessage(raw)
}
