package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks yes/no questions on a terminal.
type Confirmer struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewConfirmer reads answers from r and writes prompts to w.
func NewConfirmer(r io.Reader, w io.Writer) *Confirmer {
	return &Confirmer{reader: NewNonBlockingReader(r), writer: w}
}

// Confirm asks until it gets y/yes or n/no. An empty answer or end of
// input means no.
func (c *Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	for {
		if _, err := fmt.Fprintf(c.writer, "%s", FormatPrompt(prompt+" [y/N]")); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}

		answer, err := c.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}

		if _, err := fmt.Fprintln(c.writer, FormatError("Please answer y or n.")); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}
	}
}
