package airport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoSnapshot is returned by LoadLatest when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no airport dataset snapshot found")

// SnapshotStore persists raw dataset bodies so a restarted process can
// serve the last known dataset before (or without) reaching the source.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte, ts time.Time) error
	LoadLatest(ctx context.Context) ([]byte, time.Time, error)
}

const (
	snapshotPrefix = "airports_"
	snapshotSuffix = ".json"
)

// DiskSnapshots keeps timestamped dataset files in a directory.
type DiskSnapshots struct {
	dir      string
	maxFiles int
}

// NewDiskSnapshots stores files in dir and keeps at most maxFiles.
func NewDiskSnapshots(dir string, maxFiles int) *DiskSnapshots {
	if maxFiles <= 0 {
		maxFiles = 3
	}
	return &DiskSnapshots{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Save writes data to a timestamped file and prunes old files beyond maxFiles.
func (d *DiskSnapshots) Save(_ context.Context, data []byte, ts time.Time) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	name := fmt.Sprintf("%s%d%s", snapshotPrefix, ts.Unix(), snapshotSuffix)
	path := filepath.Join(d.dir, name)

	// Write then rename so a crash never leaves a truncated newest file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming snapshot file: %w", err)
	}

	return d.prune()
}

// LoadLatest reads the newest snapshot by the timestamp in its filename.
func (d *DiskSnapshots) LoadLatest(_ context.Context) ([]byte, time.Time, error) {
	files, err := d.listFiles()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, ErrNoSnapshot
	}

	// Sorted oldest first.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(d.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading snapshot file: %w", err)
	}

	return data, latest.ts, nil
}

type snapshotFile struct {
	name string
	ts   time.Time
}

func (d *DiskSnapshots) listFiles() ([]snapshotFile, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshot dir: %w", err)
	}

	var files []snapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapshotFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})

	return files, nil
}

func (d *DiskSnapshots) prune() error {
	files, err := d.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= d.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-d.maxFiles] {
		if err := os.Remove(filepath.Join(d.dir, f.name)); err != nil {
			return fmt.Errorf("pruning snapshot file %s: %w", f.name, err)
		}
	}
	return nil
}
