package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain line", input: "Jane Doe\n", want: "Jane Doe"},
		{name: "surrounding whitespace", input: "  VP01  \n", want: "VP01"},
		{name: "empty line", input: "\n", want: ""},
		{name: "no trailing newline", input: "yes", want: "yes"},
		{name: "windows line ending", input: "y\r\n", want: "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNonBlockingReader(strings.NewReader(tt.input)).ReadLine(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNonBlockingReader_EOF(t *testing.T) {
	r := NewNonBlockingReader(strings.NewReader("last"))

	line, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = r.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestNonBlockingReader_ContextCancellation(t *testing.T) {
	t.Run("already canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewNonBlockingReader(strings.NewReader("ignored\n")).ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pr.Close() }()
		defer func() { _ = pw.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewNonBlockingReader(pr).ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})
}

func TestNonBlockingReader_MultipleReads(t *testing.T) {
	r := NewNonBlockingReader(strings.NewReader("VP01\nVP02\nVP03\n"))
	ctx := context.Background()

	for _, want := range []string{"VP01", "VP02", "VP03"} {
		got, err := r.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
