package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BabyProfile is the single baby tracked by a store.
type BabyProfile struct {
	ID        uuid.UUID
	Name      string
	BirthDate time.Time
	CreatedAt time.Time
}

// NewBabyProfile creates a profile with a fresh id.
func NewBabyProfile(name string, birthDate time.Time) *BabyProfile {
	return &BabyProfile{
		ID:        uuid.New(),
		Name:      name,
		BirthDate: birthDate,
		CreatedAt: time.Now(),
	}
}

// AgeInDays counts calendar days from the birth date to now, in now's
// location. Ages are never cached.
func (p *BabyProfile) AgeInDays(now time.Time) int {
	by, bm, bd := p.BirthDate.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	born := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(born).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// AgeInWeeks is AgeInDays / 7.
func (p *BabyProfile) AgeInWeeks(now time.Time) int {
	return p.AgeInDays(now) / 7
}

// AgeDescription renders "9 days old", "3 weeks old" or
// "3 weeks, 2 days old".
func (p *BabyProfile) AgeDescription(now time.Time) string {
	days := p.AgeInDays(now)
	if days < 14 {
		return fmt.Sprintf("%d %s old", days, plural(days, "day"))
	}
	weeks, rest := days/7, days%7
	if rest == 0 {
		return fmt.Sprintf("%d %s old", weeks, plural(weeks, "week"))
	}
	return fmt.Sprintf("%d %s, %d %s old", weeks, plural(weeks, "week"), rest, plural(rest, "day"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
