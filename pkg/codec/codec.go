// Package codec provides the on-disk encodings for config documents.
// A Codec renders a generic value to bytes and parses bytes back; the store
// never touches encoding details beyond this interface.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/lc/nextconf/pkg/value"
)

// Codec converts between serialized bytes and the generic value tree.
type Codec interface {
	// Name identifies the encoding ("toml", "yaml").
	Name() string
	// Marshal renders a value. Config documents are maps at the top level.
	Marshal(v value.Value) ([]byte, error)
	// Unmarshal parses bytes into a generic value.
	Unmarshal(data []byte) (value.Value, error)
}

// TOML returns the TOML codec. This is the store's default encoding.
func TOML() Codec { return tomlCodec{} }

// YAML returns the YAML codec.
func YAML() Codec { return yamlCodec{} }

// ForPath picks a codec from a file extension.
func ForPath(path string) (Codec, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return tomlCodec{}, true
	case ".yaml", ".yml":
		return yamlCodec{}, true
	}
	return nil, false
}

type tomlCodec struct{}

func (tomlCodec) Name() string { return "toml" }

func (tomlCodec) Marshal(v value.Value) ([]byte, error) {
	m, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("toml documents must be maps, got %s", v.Kind())
	}
	return toml.Marshal(value.MapOf(m).Any())
}

func (tomlCodec) Unmarshal(data []byte) (value.Value, error) {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return value.Nil(), err
	}
	return value.FromAny(tree)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(v value.Value) ([]byte, error) {
	return yaml.Marshal(v.Any())
}

func (yamlCodec) Unmarshal(data []byte) (value.Value, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return value.Nil(), err
	}
	return value.FromAny(tree)
}
