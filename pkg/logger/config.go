/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"os"
	"strconv"
	"strings"
)

const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"

	defaultLogFile    = "/var/log/bluecast/bluecastd.log"
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 3
	defaultMaxAgeDays = 14
)

type Config struct {
	Level      string      `json:"level" toml:"level" yaml:"level"`
	Debug      bool        `json:"debug" toml:"debug" yaml:"debug"`
	Output     string      `json:"output" toml:"output" yaml:"output"`
	TimeFormat string      `json:"time_format" toml:"time_format" yaml:"time_format"`
	File       *FileConfig `json:"file,omitempty" toml:"file" yaml:"file,omitempty"`
}

// FileConfig controls rotation when Output is "file".
type FileConfig struct {
	Path       string `json:"path" toml:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `json:"compress" toml:"compress" yaml:"compress"`
}

func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("DEBUG", false),
		Output:     getEnvOrDefault("LOG_OUTPUT", OutputStdout),
		TimeFormat: getEnvOrDefault("LOG_TIME_FORMAT", ""),
		File:       DefaultFileConfig(),
	}
}

func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Path:       getEnvOrDefault("LOG_FILE", defaultLogFile),
		MaxSizeMB:  getEnvIntOrDefault("LOG_FILE_MAX_SIZE_MB", defaultMaxSizeMB),
		MaxBackups: getEnvIntOrDefault("LOG_FILE_MAX_BACKUPS", defaultMaxBackups),
		MaxAgeDays: getEnvIntOrDefault("LOG_FILE_MAX_AGE_DAYS", defaultMaxAgeDays),
		Compress:   getEnvBoolOrDefault("LOG_FILE_COMPRESS", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return n
}
