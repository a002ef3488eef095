package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Trail is an append-only JSON-lines log of entries. A Trail with an empty
// path keeps entries in memory only.
type Trail struct {
	path    string
	mu      sync.Mutex
	entries []Entry
	logger  zerolog.Logger
}

// NewTrail opens (or prepares) the trail file at path.
func NewTrail(path string, logger *zerolog.Logger) *Trail {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "audit").Logger()
	}
	return &Trail{path: path, logger: l}
}

// Record appends an entry.
func (t *Trail) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.path == "" {
		t.entries = append(t.entries, e)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("audit dir: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit trail: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}

	t.logger.Debug().Str("action", e.Action).Str("target", e.Target).Str("outcome", e.Outcome).Msg("audit entry recorded")
	return nil
}

// Entries returns recorded entries in time order, optionally limited to [from, to).
func (t *Trail) Entries(from, to time.Time) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.load()
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range all {
		if !from.IsZero() && e.At.Before(from) {
			continue
		}
		if !to.IsZero() && !e.At.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (t *Trail) load() ([]Entry, error) {
	if t.path == "" {
		return append([]Entry(nil), t.entries...), nil
	}

	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.logger.Warn().Err(err).Int("line", line).Msg("skipping corrupt audit line")
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// Export writes entries grouped by month, one sheet per month.
func Export(w TableWriter, entries []Entry, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if len(entries) == 0 {
		if err := w.AddSheet(SheetName(time.Now().In(loc))); err != nil {
			return err
		}
		return w.WriteHeader(Columns)
	}

	current := ""
	for _, e := range entries {
		name := SheetName(e.At.In(loc))
		if name != current {
			if err := w.AddSheet(name); err != nil {
				return err
			}
			if err := w.WriteHeader(Columns); err != nil {
				return err
			}
			current = name
		}
		if err := w.WriteRow(e.Row(loc)); err != nil {
			return err
		}
	}
	return nil
}

// ExportFile writes the whole trail to an .xlsx file.
func (t *Trail) ExportFile(path string, loc *time.Location) (int, error) {
	entries, err := t.Entries(time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}

	wb := NewWorkbook()
	defer wb.Close()
	if err := Export(wb, entries, loc); err != nil {
		return 0, err
	}
	if err := wb.SaveToFile(path); err != nil {
		return 0, fmt.Errorf("save %s: %w", path, err)
	}
	return len(entries), nil
}
