package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FileStore keeps rendered configs under <root>/generated and backups under
// <root>/backups, one file per device (generated) or per device+timestamp
// (backups).
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates the store directories under root.
func NewFileStore(root string) (*FileStore, error) {
	for _, sub := range []string{"generated", "backups"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return &FileStore{root: root, now: time.Now}, nil
}

// Root returns the store's base directory.
func (s *FileStore) Root() string {
	return s.root
}

// RenderedPath returns the on-disk path of a device's rendered config.
func (s *FileStore) RenderedPath(device string) string {
	return filepath.Join(s.root, "generated", device+".cfg")
}

// SaveRendered writes the current rendered config, replacing any previous one.
func (s *FileStore) SaveRendered(device, text string) error {
	return os.WriteFile(s.RenderedPath(device), []byte(text), 0644)
}

// ReadRendered returns the current rendered config or ErrNoRendered.
func (s *FileStore) ReadRendered(device string) (string, error) {
	data, err := os.ReadFile(s.RenderedPath(device))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoRendered
		}
		return "", err
	}
	return string(data), nil
}

// SaveBackup writes a new timestamped backup file. A second backup within
// the same second gets a numeric suffix rather than overwriting.
func (s *FileStore) SaveBackup(device, text string) (*Backup, error) {
	taken := s.now()
	stamp := taken.Format(BackupTimestampFormat)

	dir := filepath.Join(s.root, "backups")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.cfg", device, stamp))
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%s_%d.cfg", device, stamp, n))
	}

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("writing backup for %s: %w", device, err)
	}
	return &Backup{Device: device, Text: text, TakenAt: taken}, nil
}

// LatestBackup returns the newest backup for a device, or ErrNoBackup.
func (s *FileStore) LatestBackup(device string) (*Backup, error) {
	files, err := s.backupFiles(device)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoBackup
	}

	newest := files[0]
	data, err := os.ReadFile(newest.path)
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", newest.path, err)
	}
	return &Backup{
		Device:  device,
		Text:    string(data),
		TakenAt: newest.taken,
	}, nil
}

// ListBackups returns backup metadata for a device, newest first.
func (s *FileStore) ListBackups(device string) ([]*Backup, error) {
	files, err := s.backupFiles(device)
	if err != nil {
		return nil, err
	}

	var backups []*Backup
	for _, f := range files {
		backups = append(backups, &Backup{
			Device:  device,
			TakenAt: f.taken,
		})
	}
	return backups, nil
}

type backupFile struct {
	path  string
	taken time.Time
	seq   int // same-second collision suffix, 0 for the first capture
}

// backupFiles returns the device's backup files sorted newest first.
// Only names whose remainder after the device prefix parses as a capture
// timestamp belong to the device; a bare prefix match would also pick up
// backups of "pe_1" when asked about "pe".
func (s *FileStore) backupFiles(device string) ([]backupFile, error) {
	pattern := filepath.Join(s.root, "backups", device+"_*.cfg")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var files []backupFile
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".cfg")
		rest := strings.TrimPrefix(name, device+"_")

		stamp, seq := rest, 0
		if len(rest) > len(BackupTimestampFormat) {
			if rest[len(BackupTimestampFormat)] != '_' {
				continue
			}
			n, err := strconv.Atoi(rest[len(BackupTimestampFormat)+1:])
			if err != nil || n < 1 {
				continue
			}
			stamp, seq = rest[:len(BackupTimestampFormat)], n
		}
		taken, err := time.ParseInLocation(BackupTimestampFormat, stamp, time.Local)
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: path, taken: taken, seq: seq})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].taken.Equal(files[j].taken) {
			return files[i].taken.After(files[j].taken)
		}
		return files[i].seq > files[j].seq
	})
	return files, nil
}
