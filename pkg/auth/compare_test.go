package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstantTimeEqual_Equal(t *testing.T) {
	t.Parallel()
	assert.True(t, ConstantTimeEqual("secret-key-1", "secret-key-1"))
}

func TestConstantTimeEqual_NotEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"differ at first byte", "aecret-key-1", "secret-key-1"},
		{"differ at last byte", "secret-key-1", "secret-key-2"},
		{"differ in middle", "secret-XXX-1", "secret-key-1"},
		{"matching prefix, different length", "secret-key", "secret-key-1"},
		{"empty vs non-empty", "", "secret-key-1"},
		{"non-empty vs empty", "secret-key-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ConstantTimeEqual(tt.a, tt.b))
		})
	}
}

func TestConstantTimeEqual_EmptyBoth(t *testing.T) {
	t.Parallel()
	assert.True(t, ConstantTimeEqual("", ""))
}

func TestConstantTimeEqual_LongInputs(t *testing.T) {
	t.Parallel()
	a := strings.Repeat("x", 4096)
	assert.True(t, ConstantTimeEqual(a, a))
	assert.False(t, ConstantTimeEqual(a, a[:4095]+"y"))
}
