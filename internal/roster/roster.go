// Package roster holds the list of subject names offered for selection.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Source loads raw roster names.
type Source interface {
	RosterNames(ctx context.Context) ([]string, error)
}

// Roster is a refreshable, sorted list of normalized names. It is safe for
// concurrent use.
type Roster struct {
	loadedAt time.Time
	source   Source
	logger   *slog.Logger
	names    []string
	mu       sync.RWMutex
}

// New creates an empty roster backed by source. Call Refresh to load it.
func New(source Source, logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{source: source, logger: logger}
}

// Refresh reloads names from the source. On failure the previous list is
// kept and the error returned.
func (r *Roster) Refresh(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("no roster source configured")
	}

	raw, err := r.source.RosterNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	names := Normalize(raw)

	r.mu.Lock()
	r.names = names
	r.loadedAt = time.Now()
	r.mu.Unlock()

	r.logger.Info("roster refreshed", "names", len(names))
	return nil
}

// Names returns a copy of the current list.
func (r *Roster) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Len returns the number of names.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Contains reports whether name, once normalized, is on the roster.
func (r *Roster) Contains(name string) bool {
	name = model.NormalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	i := sort.SearchStrings(r.names, name)
	return i < len(r.names) && r.names[i] == name
}

// LoadedAt returns when the roster was last refreshed.
func (r *Roster) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}

// Normalize cleans, de-duplicates and sorts names. Blank entries are
// dropped.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = model.NormalizeName(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WorkbookSource reads names from the second column of a roster sheet,
// skipping the "STT" header.
type WorkbookSource struct {
	Book  mirror.Workbook
	Sheet string
}

// RosterNames implements Source.
func (s WorkbookSource) RosterNames(ctx context.Context) ([]string, error) {
	sheet := s.Sheet
	if sheet == "" {
		sheet = mirror.RosterSheet
	}

	rows, err := s.Book.Rows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return NamesFromRows(rows), nil
}

// NamesFromRows extracts raw names from roster sheet rows.
func NamesFromRows(rows [][]string) []string {
	var names []string
	for _, row := range rows {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "stt") {
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[1]) == "" {
			continue
		}
		names = append(names, row[1])
	}
	return names
}

// StaticSource serves a fixed list.
type StaticSource []string

// RosterNames implements Source.
func (s StaticSource) RosterNames(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}
