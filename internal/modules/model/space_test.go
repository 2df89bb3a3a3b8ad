package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSpaceID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"alpha", true},
		{"room-42_a.b", true},
		{strings.Repeat("x", 128), true},
		{"", false},
		{strings.Repeat("x", 129), false},
		{"alpha:participants", false},
		{"room*", false},
		{"ro?m", false},
		{"[a]", false},
		{"a b", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidSpaceID(tt.id), tt.id)
	}
}
