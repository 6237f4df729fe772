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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

var errUnsupportedFormat = errors.New("unsupported configuration format")

// FileConfigLoader loads configuration from a local file. The format is
// picked from the extension: .json, .toml, .yaml or .yml.
type FileConfigLoader struct{}

// Load implements ConfigLoader by reading and unmarshaling the file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if path == "" {
		return errNoConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, dst)
	case ".toml":
		_, err = toml.Decode(string(data), dst)
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, dst)
	default:
		return fmt.Errorf("%w: %q", errUnsupportedFormat, ext)
	}

	if err != nil {
		return fmt.Errorf("failed to unmarshal %s from '%s': %w", strings.TrimPrefix(ext, "."), path, err)
	}

	return nil
}
