package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer, "Import")
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts_CancelDoesNotMarkInterrupted(t *testing.T) {
	handler := NewInterruptHandler(&bytes.Buffer{}, "Import")

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, true)
	cancel()
	<-ctx.Done()

	assert.False(t, handler.WasInterrupted())
}

func TestInterruptShowsMessageOnce(t *testing.T) {
	var output bytes.Buffer
	handler := NewInterruptHandler(&output, "Settlement")
	handler.resumable = true

	handler.interrupt()
	handler.interrupt()

	assert.True(t, handler.WasInterrupted())
	assert.Equal(t, 1, strings.Count(output.String(), "Settlement interrupted!"))
}

func TestShowInterruptMessage(t *testing.T) {
	tests := []struct {
		name        string
		expected    []string
		notExpected []string
		resumable   bool
	}{
		{
			name:      "resumable",
			resumable: true,
			expected:  []string{"Import interrupted!", "has been saved", "Run the same command again"},
		},
		{
			name:        "not resumable",
			expected:    []string{"Import interrupted!", "Nothing was saved."},
			notExpected: []string{"Run the same command again", "has been saved"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			handler := &InterruptHandler{writer: &output, operation: "Import", resumable: tt.resumable}

			handler.showInterruptMessage()

			for _, s := range tt.expected {
				assert.Contains(t, output.String(), s)
			}
			for _, s := range tt.notExpected {
				assert.NotContains(t, output.String(), s)
			}
		})
	}
}
