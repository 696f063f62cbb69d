package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the calendar date format used as the TrackingDay partition key.
// Dates are the client's local calendar day and are stored verbatim.
const DateLayout = "2006-01-02"

// EntryStatus is the progress of one meal option or exercise on one day.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryTracking  EntryStatus = "tracking"
	EntryCompleted EntryStatus = "completed"
)

var (
	ErrInvalidDate     = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidEntryKey = errors.New("entry key must be formatted as <index>-<index>")
)

// EntryState is the tracked state of a single plan entry.
type EntryState struct {
	Status      EntryStatus `bson:"status" json:"status"`
	StartedAt   *time.Time  `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time  `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// TrackingDay records entry-level progress of one assignment on one calendar
// date. There is at most one TrackingDay per (AssignmentID, Date).
type TrackingDay struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	AssignmentID primitive.ObjectID    `bson:"assignmentId" json:"assignmentId"`
	ClientID     primitive.ObjectID    `bson:"clientId" json:"clientId"`
	Date         string                `bson:"date" json:"date"`
	Entries      map[string]EntryState `bson:"entries" json:"entries"`
	CreatedAt    time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time             `bson:"updatedAt" json:"updatedAt"`
}

// ValidateDate checks that date is a real YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// EntryKey builds the key for the entry at (outer, inner): a meal option or a
// workout exercise.
func EntryKey(outer, inner int) string {
	return strconv.Itoa(outer) + "-" + strconv.Itoa(inner)
}

// ParseEntryKey splits a key built by EntryKey.
func ParseEntryKey(key string) (outer, inner int, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidEntryKey, key)
	}
	outer, err = strconv.Atoi(parts[0])
	if err != nil || outer < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidEntryKey, key)
	}
	inner, err = strconv.Atoi(parts[1])
	if err != nil || inner < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidEntryKey, key)
	}
	return outer, inner, nil
}

// SetEntry applies a status change to one entry.
//
// When exclusive is set and status is EntryTracking, every other entry of the
// day is forced to EntryCompleted first, so the day never holds two tracking
// entries. Existing CompletedAt stamps are preserved.
func (d *TrackingDay) SetEntry(key string, status EntryStatus, exclusive bool, now time.Time) {
	if d.Entries == nil {
		d.Entries = make(map[string]EntryState)
	}

	if exclusive && status == EntryTracking {
		for k, entry := range d.Entries {
			if k == key {
				continue
			}
			d.Entries[k] = completeEntry(entry, now)
		}
	}

	entry := d.Entries[key]
	switch status {
	case EntryTracking:
		entry.Status = EntryTracking
		if entry.StartedAt == nil {
			started := now
			entry.StartedAt = &started
		}
		entry.CompletedAt = nil
	case EntryCompleted:
		entry = completeEntry(entry, now)
	default:
		entry.Status = status
	}
	d.Entries[key] = entry
}

// CompleteTracking moves every tracking entry to completed and returns how
// many entries changed.
func (d *TrackingDay) CompleteTracking(now time.Time) int {
	changed := 0
	for k, entry := range d.Entries {
		if entry.Status != EntryTracking {
			continue
		}
		d.Entries[k] = completeEntry(entry, now)
		changed++
	}
	return changed
}

// CountStatus returns how many entries currently have the given status.
func (d *TrackingDay) CountStatus(status EntryStatus) int {
	n := 0
	for _, entry := range d.Entries {
		if entry.Status == status {
			n++
		}
	}
	return n
}

// KeysWithStatus returns the sorted keys of entries with the given status.
func (d *TrackingDay) KeysWithStatus(status EntryStatus) []string {
	var keys []string
	for k, entry := range d.Entries {
		if entry.Status == status {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func completeEntry(entry EntryState, now time.Time) EntryState {
	entry.Status = EntryCompleted
	if entry.CompletedAt == nil {
		completed := now
		entry.CompletedAt = &completed
	}
	return entry
}
