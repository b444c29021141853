package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/nextconf/pkg/codec"
	"github.com/lc/nextconf/pkg/value"
)

func sampleDoc() value.Value {
	return value.MapOf(value.Map{
		"name":    value.String("app"),
		"port":    value.Int(8080),
		"debug":   value.Bool(true),
		"ratio":   value.Float(0.5),
		"origins": value.SeqOf(value.String("a"), value.String("b")),
		"limits":  value.MapOf(value.Map{"max": value.Int(10)}),
	})
}

func TestCodecRoundTrip(t *testing.T) {
	for _, c := range []codec.Codec{codec.TOML(), codec.YAML()} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(sampleDoc())
			require.NoError(t, err)

			back, err := c.Unmarshal(data)
			require.NoError(t, err)
			assert.True(t, value.Equal(sampleDoc(), back), "decoded document should equal original")
		})
	}
}

func TestTOMLRequiresMapDocument(t *testing.T) {
	_, err := codec.TOML().Marshal(value.Int(5))
	assert.Error(t, err)
}

func TestUnmarshalMalformed(t *testing.T) {
	_, err := codec.TOML().Unmarshal([]byte("= not toml ="))
	assert.Error(t, err)

	_, err = codec.YAML().Unmarshal([]byte(":\n  - ]["))
	assert.Error(t, err)
}

func TestForPath(t *testing.T) {
	testCases := []struct {
		path string
		name string
		ok   bool
	}{
		{path: "app.toml", name: "toml", ok: true},
		{path: "app.yaml", name: "yaml", ok: true},
		{path: "app.YML", name: "yaml", ok: true},
		{path: "app.json", ok: false},
		{path: "app", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			c, ok := codec.ForPath(tc.path)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.name, c.Name())
			}
		})
	}
}
