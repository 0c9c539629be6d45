package thoughttree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrNoSnapshot is returned when the store holds nothing to load or recover.
var ErrNoSnapshot = errors.New("no session snapshot")

const (
	filePrefix = "session_"
	fileSuffix = ".json"
)

var sessionIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidSessionID reports whether id can name a snapshot file.
func ValidSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}

// Store keeps one JSON snapshot file per session in a directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed and returns a store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding the snapshots.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

// Save writes snap for session id. The file is replaced atomically: the
// snapshot is written and synced to a temporary file in the same directory
// and then renamed over the target.
func (s *Store) Save(id string, snap Snapshot) error {
	if !ValidSessionID(id) {
		return fmt.Errorf("save: invalid session id %q", id)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filePrefix+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path(id)); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot of session id. A missing file yields
// ErrNoSnapshot.
func (s *Store) Load(id string) (Snapshot, error) {
	if !ValidSessionID(id) {
		return Snapshot{}, fmt.Errorf("load %q: %w", id, ErrNoSnapshot)
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, fmt.Errorf("load %s: %w", id, ErrNoSnapshot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Latest returns the id of the most recently modified snapshot.
func (s *Store) Latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("scan data dir: %w", err)
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if !ValidSessionID(id) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = id, info.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoSnapshot
	}
	return best, nil
}

// Recover loads session id, or when it has no snapshot, the most recently
// modified one. It returns the id that was actually loaded.
func (s *Store) Recover(id string) (string, *Tree, error) {
	snap, err := s.Load(id)
	if errors.Is(err, ErrNoSnapshot) {
		latest, lerr := s.Latest()
		if lerr != nil {
			return "", nil, fmt.Errorf("recover %s: %w", id, lerr)
		}
		id = latest
		snap, err = s.Load(id)
	}
	if err != nil {
		return "", nil, err
	}
	t, err := Restore(snap)
	if err != nil {
		return "", nil, fmt.Errorf("restore %s: %w", id, err)
	}
	return id, t, nil
}
