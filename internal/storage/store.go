package storage

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/babytalk/internal/model"
	"github.com/Tiliavir/babytalk/internal/timecalc"
)

// DefaultPreloadDays is how many recent days Open loads eagerly.
const DefaultPreloadDays = 30

var (
	// ErrEntryNotFound is returned when an entry is not in the day its
	// timestamp maps to.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("store is closed")
)

// Options configures a Store.
type Options struct {
	// Location decides which calendar day a timestamp belongs to. It is fixed
	// for the lifetime of the store. Nil means time.Local.
	Location *time.Location
	// Logger receives load warnings and write failures. Nil discards them.
	Logger *log.Logger
	// Now is the clock used for the startup preload. Nil means time.Now.
	Now func() time.Time
	// PreloadDays overrides DefaultPreloadDays when positive.
	PreloadDays int
}

// Store maps day-keys to DailyLog aggregates, backed by one JSON file per
// day plus a profile file. It is safe for concurrent use: a per-day lock
// serialises each read-modify-persist sequence.
type Store struct {
	base   string
	loc    *time.Location
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	days     map[string]*model.DailyLog
	dayLocks map[string]*sync.Mutex
	profile  *model.BabyProfile
	closed   bool
}

// Open creates the data directory if needed, then loads the profile and the
// most recent days. Unreadable files are logged and treated as absent.
func Open(base string, opts Options) (*Store, error) {
	s := &Store{
		base:     base,
		loc:      opts.Location,
		logger:   opts.Logger,
		now:      opts.Now,
		days:     make(map[string]*model.DailyLog),
		dayLocks: make(map[string]*sync.Mutex),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.now == nil {
		s.now = time.Now
	}
	preload := opts.PreloadDays
	if preload <= 0 {
		preload = DefaultPreloadDays
	}

	if err := ensureDir(base); err != nil {
		return nil, err
	}

	p, err := LoadProfile(base)
	if err != nil {
		s.logger.Printf("storage: %v", err)
	}
	s.profile = p

	s.mu.Lock()
	for _, day := range timecalc.LastNDays(s.now(), preload, s.loc) {
		s.cachedLocked(timecalc.DayKey(day, s.loc), day)
	}
	s.mu.Unlock()
	return s, nil
}

// Location returns the location used for day-keys.
func (s *Store) Location() *time.Location { return s.loc }

// Dir returns the data directory.
func (s *Store) Dir() string { return s.base }

// Close releases the store. Later mutations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// DailyLog returns a snapshot of the log for date's calendar day. It never
// fails: a missing or unreadable day yields an empty log dated to the start
// of that day.
func (s *Store) DailyLog(date time.Time) *model.DailyLog {
	key := timecalc.DayKey(date, s.loc)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachedLocked(key, date).Clone()
}

// AddEntry appends e to its day and persists that day. On failure the
// append is undone and an error wrapping ErrWrite is returned.
func (s *Store) AddEntry(e model.LogEntry) error {
	return s.mutateDay(e.Timestamp, func(dl *model.DailyLog) error {
		dl.Add(e)
		return nil
	})
}

// RemoveEntry deletes e from the day its timestamp maps to. If e was
// re-dated after it was stored the lookup misses and ErrEntryNotFound is
// returned.
func (s *Store) RemoveEntry(e model.LogEntry) error {
	return s.mutateDay(e.Timestamp, func(dl *model.DailyLog) error {
		if !dl.Remove(e.ID) {
			return fmt.Errorf("%w: %s on %s", ErrEntryNotFound, e.ID, timecalc.DayKey(e.Timestamp, s.loc))
		}
		return nil
	})
}

// SetDailyNotes replaces the free-text notes of date's day.
func (s *Store) SetDailyNotes(date time.Time, notes string) error {
	return s.mutateDay(date, func(dl *model.DailyLog) error {
		dl.Notes = notes
		return nil
	})
}

// FindEntry searches the cached days for id.
func (s *Store) FindEntry(id uuid.UUID) (model.LogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dl := range s.days {
		if e, ok := dl.Find(id); ok {
			return e, true
		}
	}
	return model.LogEntry{}, false
}

// Range returns snapshots for every day in [from, to], oldest first.
func (s *Store) Range(from, to time.Time) []*model.DailyLog {
	days := timecalc.DaysBetween(from, to, s.loc)
	out := make([]*model.DailyLog, 0, len(days))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range days {
		out = append(out, s.cachedLocked(timecalc.DayKey(d, s.loc), d).Clone())
	}
	return out
}

// RecentEntries returns entries from the last days calendar days ending at
// now, newest first, truncated to limit when limit > 0.
func (s *Store) RecentEntries(now time.Time, days, limit int) []model.LogEntry {
	var entries []model.LogEntry
	for _, dl := range s.Range(now.AddDate(0, 0, -(days - 1)), now) {
		entries = append(entries, dl.Entries...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// WeekStats averages the last seven days ending at now.
func (s *Store) WeekStats(now time.Time) model.WeekStats {
	return model.ComputeWeekStats(s.Range(now.AddDate(0, 0, -6), now))
}

// StoredDays lists every day-key that has a file on disk.
func (s *Store) StoredDays() ([]string, error) {
	return DayKeys(s.base)
}

// Profile returns a copy of the baby profile, if one exists.
func (s *Store) Profile() (*model.BabyProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, false
	}
	p := *s.profile
	return &p, true
}

// CreateProfile replaces the profile with a new one and persists it.
func (s *Store) CreateProfile(name string, birthDate time.Time) (*model.BabyProfile, error) {
	p := model.NewBabyProfile(name, birthDate)
	if err := s.SaveProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveProfile persists p and makes it the current profile. The previous
// profile stays current if the write fails.
func (s *Store) SaveProfile(p *model.BabyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := SaveProfile(s.base, p); err != nil {
		s.logger.Printf("storage: saving profile: %v", err)
		return err
	}
	cp := *p
	s.profile = &cp
	return nil
}

// mutateDay applies fn to the cached log of day and persists the result
// while holding that day's lock. fn must leave the log untouched when it
// returns an error.
func (s *Store) mutateDay(day time.Time, fn func(*model.DailyLog) error) error {
	key := timecalc.DayKey(day, s.loc)
	lock := s.dayLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	dl := s.cachedLocked(key, day)
	prev := dl.Clone()
	if err := fn(dl); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := dl.Clone()
	s.mu.Unlock()

	if err := SaveDay(s.base, key, snapshot); err != nil {
		s.mu.Lock()
		*dl = *prev
		s.mu.Unlock()
		s.logger.Printf("storage: saving day %s: %v", key, err)
		return err
	}
	return nil
}

func (s *Store) dayLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dayLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.dayLocks[key] = l
	}
	return l
}

// cachedLocked returns the cached log for key, loading or creating it on a
// miss. s.mu must be held.
func (s *Store) cachedLocked(key string, day time.Time) *model.DailyLog {
	if dl, ok := s.days[key]; ok {
		return dl
	}
	dl, found, err := LoadDay(s.base, key)
	if err != nil {
		s.logger.Printf("storage: %v", err)
	}
	if !found {
		dl = model.NewDailyLog(timecalc.StartOfDay(day, s.loc))
	} else if n := dl.Unreadable(); n > 0 {
		s.logger.Printf("storage: day %s: skipped %d unreadable entries", key, n)
	}
	s.days[key] = dl
	return dl
}
