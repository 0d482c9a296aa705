package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFileLoader reads raw config from a YAML file. A missing file yields an
// empty map so defaults and runtime values still apply.
type YAMLFileLoader struct {
	Path string
}

func NewYAMLFileLoader(path string) YAMLFileLoader {
	return YAMLFileLoader{Path: strings.TrimSpace(path)}
}

func (l YAMLFileLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("core: read config %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("core: parse config %s: %w", path, err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

var _ RawConfigLoader = YAMLFileLoader{}
