package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Slow Burn", "slow-burn"},
		{"react_hooks", "react-hooks"},
		{"C++ / Rust!", "c-rust"},
		{"  --Hello__World--  ", "hello-world"},
		{"Go 1.22", "go-122"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestNewTagID(t *testing.T) {
	id, err := NewTagID()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}$`, id)

	other, err := NewTagID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}
