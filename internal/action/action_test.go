package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type ping struct{}

func (ping) Type() Type { return "test/ping" }

type rename struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

func (rename) Type() Type { return "test/rename" }

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(Empty))
	assert.False(t, IsEmpty(ping{}))
	assert.False(t, IsEmpty(Failed{}))
}

func TestOf(t *testing.T) {
	assert.Equal(t, EmptyType, Of(nil))
	assert.Equal(t, Type("test/ping"), Of(ping{}))
}

func TestFailed_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	f := Failed{Trigger: ping{}, Effect: "fetch", Err: cause}

	assert.ErrorIs(t, f.Unwrap(), cause)
	assert.Equal(t, FailedType, f.Type())
	assert.Equal(t, "effect fetch failed on test/ping: boom", f.String())
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("test/ping", Unit(ping{})))

	tests := []struct {
		name string
		typ  Type
		dec  Decoder
	}{
		{"duplicate", "test/ping", Unit(ping{})},
		{"empty type", "", Unit(ping{})},
		{"reserved empty", EmptyType, Unit(ping{})},
		{"reserved failed", FailedType, Unit(ping{})},
		{"nil decoder", "test/other", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.typ, tt.dec))
		})
	}

	assert.Equal(t, []Type{"test/ping"}, r.Types())
}

func TestRegistry_Decode(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test/ping", Unit(ping{}))
	r.MustRegister("test/rename", Payload[rename]())

	a, err := r.Decode("test/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, ping{}, a)

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("id: 7\nname: seven\n"), &doc))
	a, err = r.Decode("test/rename", doc.Content[0])
	require.NoError(t, err)
	assert.Equal(t, rename{ID: 7, Name: "seven"}, a)

	a, err = r.Decode("test/rename", nil)
	require.NoError(t, err)
	assert.Equal(t, rename{}, a)

	_, err = r.Decode("test/missing", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_DecodeRejectsMismatchedType(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test/liar", Unit(ping{}))

	_, err := r.Decode("test/liar", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `decoder produced "test/ping"`)
}

func TestRegistry_DecodeBadPayload(t *testing.T) {
	r := NewRegistry()
	r.MustRegister("test/rename", Payload[rename]())

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("id: [1, 2]\n"), &doc))
	_, err := r.Decode("test/rename", doc.Content[0])
	assert.Error(t, err)
}
