package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"empty means no", "\n", false},
		{"eof means no", "", false},
		{"retry after junk", "maybe\ny\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewConfirmer(strings.NewReader(tt.input), &out).Confirm(context.Background(), "Delete record 3?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Delete record 3? [y/N]")
		})
	}
}

func TestConfirm_RepromptsOnJunk(t *testing.T) {
	var out bytes.Buffer
	_, err := NewConfirmer(strings.NewReader("maybe\nn\n"), &out).Confirm(context.Background(), "Go?")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please answer y or n.")
	assert.Equal(t, 2, strings.Count(out.String(), "Go? [y/N]"))
}
