package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tiliavir/babytalk/internal/model"
)

const (
	dayFilePrefix   = "daily_log_"
	dayFileSuffix   = ".json"
	profileFileName = "baby_profile.json"
)

var (
	// ErrWrite marks every failure to persist data. The in-memory state is
	// rolled back before it is returned, so the caller may retry.
	ErrWrite = errors.New("storage write failed")
	// ErrCorrupt marks a file that exists but cannot be decoded.
	ErrCorrupt = errors.New("corrupt data file")
)

// DayFileName returns the file name for a day-key.
func DayFileName(key string) string {
	return dayFilePrefix + key + dayFileSuffix
}

func dayFilePath(base, key string) string {
	return filepath.Join(base, DayFileName(key))
}

// LoadDay reads the log stored under key. found is false when no file exists.
// Files that are not a valid day are moved aside to <file>.corrupt. Single
// entries that fail to decode do not fail the day; see DailyLog.Unreadable.
func LoadDay(base, key string) (log *model.DailyLog, found bool, err error) {
	path := dayFilePath(base, key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var dl model.DailyLog
	if err := json.Unmarshal(data, &dl); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, false, fmt.Errorf("%w: %s (backed up to %s): %w", ErrCorrupt, path, backupPath, err)
	}
	return &dl, true, nil
}

// SaveDay atomically writes the log for key.
func SaveDay(base, key string, dl *model.DailyLog) error {
	data, err := json.MarshalIndent(dl, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling day %s: %w", ErrWrite, key, err)
	}
	return writeAtomic(dayFilePath(base, key), data)
}

// DayKeys lists the day-keys that have a file in base, oldest first.
func DayKeys(base string) ([]string, error) {
	items, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", base, err)
	}
	var keys []string
	for _, it := range items {
		name := it.Name()
		if it.IsDir() || !strings.HasPrefix(name, dayFilePrefix) || !strings.HasSuffix(name, dayFileSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, dayFilePrefix), dayFileSuffix))
	}
	sort.Strings(keys)
	return keys, nil
}

// LoadProfile reads the baby profile. It returns nil, nil when none exists.
func LoadProfile(base string) (*model.BabyProfile, error) {
	path := filepath.Join(base, profileFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	var p model.BabyProfile
	if err := json.Unmarshal(data, &p); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("%w: %s (backed up to %s): %w", ErrCorrupt, path, backupPath, err)
	}
	return &p, nil
}

// SaveProfile atomically writes the baby profile.
func SaveProfile(base string, p *model.BabyProfile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling profile: %w", ErrWrite, err)
	}
	return writeAtomic(filepath.Join(base, profileFileName), data)
}

func ensureDir(base string) error {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return fmt.Errorf("storage error creating %s: %w", base, err)
	}
	return nil
}

// writeAtomic writes to a temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: creating directories: %w", ErrWrite, err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing temp file: %w", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming temp file: %w", ErrWrite, err)
	}
	return nil
}
