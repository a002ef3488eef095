package config

import (
	"context"
	"os"
	"time"
)

// Watch polls the config file and calls onUpdate with every version that
// loads and validates. Edits that fail to load are skipped until the next
// change. Watch returns after the initial stat; polling stops with ctx.
func Watch(ctx context.Context, path string, interval time.Duration, onUpdate func(*Config)) error {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	stamp, err := statFile(path)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if cfg := stamp.reload(); cfg != nil && onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()
	return nil
}

// fileStamp remembers the modification time of the last accepted load.
type fileStamp struct {
	path     string
	accepted time.Time
}

func statFile(path string) (*fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileStamp{path: path, accepted: info.ModTime()}, nil
}

// reload returns the freshly loaded config when the file is newer than the
// accepted stamp, or nil. A failed load leaves the stamp where it was.
func (s *fileStamp) reload() *Config {
	info, err := os.Stat(s.path)
	if err != nil || !info.ModTime().After(s.accepted) {
		return nil
	}
	cfg, err := Load(s.path)
	if err != nil {
		return nil
	}
	s.accepted = info.ModTime()
	return cfg
}
