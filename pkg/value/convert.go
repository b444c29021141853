package value

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// As decodes a generic value into a typed config struct. It is the default
// decode half of a config descriptor; types that need custom decoding supply
// their own function instead.
//
// The conversion goes through yaml.v3, so config structs are tagged with
// `yaml:"..."` regardless of the on-disk format: the file codec only ever
// renders the generic map, whose keys are produced here.
func As[T any](v Value) (T, error) {
	var out T
	data, err := yaml.Marshal(v.Any())
	if err != nil {
		return out, fmt.Errorf("encoding generic value: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding into %T: %w", out, err)
	}
	return out, nil
}

// From encodes a typed config struct into a generic value, the default
// encode half of a config descriptor. From(x) followed by As[T] yields a
// value equal to x for any yaml-serializable config type.
func From(x any) (Value, error) {
	data, err := yaml.Marshal(x)
	if err != nil {
		return Nil(), fmt.Errorf("encoding %T: %w", x, err)
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Nil(), fmt.Errorf("reparsing encoded %T: %w", x, err)
	}
	return FromAny(tree)
}
