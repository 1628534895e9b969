// Package store persists rendered configurations and timestamped backups
// of captured live configurations. Rendered configs are overwritten on
// each generation; backups are append-only and never deleted.
package store

import (
	"errors"
	"time"
)

// ErrNoBackup is returned when a device has no stored backups.
var ErrNoBackup = errors.New("no backup found")

// ErrNoRendered is returned when a device has no stored rendered config.
var ErrNoRendered = errors.New("no rendered config found")

// Backup is an immutable capture of a device's live configuration taken
// before any mutating change.
type Backup struct {
	Device  string
	Text    string
	TakenAt time.Time
}

// Store is the persistence contract for rendered configs and backups.
// Writes to distinct devices never interfere; same-device writes do not
// race because one device is owned by one in-flight operation at a time.
type Store interface {
	// SaveRendered writes the current rendered config for a device,
	// replacing any previous one.
	SaveRendered(device, text string) error

	// ReadRendered returns the current rendered config for a device,
	// or ErrNoRendered.
	ReadRendered(device string) (string, error)

	// SaveBackup stores a new backup keyed by device and capture time.
	// Existing backups are never overwritten.
	SaveBackup(device, text string) (*Backup, error)

	// LatestBackup returns the most recent backup for a device,
	// or ErrNoBackup.
	LatestBackup(device string) (*Backup, error)

	// ListBackups returns all backups for a device, newest first.
	// Returned backups carry metadata only; Text is left empty.
	ListBackups(device string) ([]*Backup, error)
}

// BackupTimestampFormat is the capture-time encoding used in backup keys.
const BackupTimestampFormat = "20060102_150405"
