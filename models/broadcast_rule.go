package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BroadcastRule schedules a recurring zone broadcast: on the configured
// weekdays, at the configured minute, every active customer in the zone
// receives the rendered template. A rule fires at most once per calendar day;
// LastRunDate records the day of the last completed firing.
type BroadcastRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ZoneID     uuid.UUID `gorm:"type:uuid;index;not null" json:"zoneId"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null" json:"templateId"`

	// Weekdays is a comma-joined list of ints, Monday=0 through Sunday=6,
	// e.g. "0,2,4".
	Weekdays  string `gorm:"type:varchar(20);not null" json:"weekdays"`
	TimeOfDay string `gorm:"type:varchar(5);not null" json:"timeOfDay"` // "HH:MM", 24h

	Enabled     bool       `gorm:"default:true" json:"enabled"`
	LastRunDate *time.Time `gorm:"type:date" json:"lastRunDate"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (r *BroadcastRule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// WeekdayList parses the stored weekday string, ignoring blanks and junk.
func (r *BroadcastRule) WeekdayList() []int {
	var days []int
	for _, part := range strings.Split(r.Weekdays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			continue
		}
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// RunsOn reports whether the rule is configured for the given weekday
// (Monday=0 ... Sunday=6).
func (r *BroadcastRule) RunsOn(weekday int) bool {
	for _, d := range r.WeekdayList() {
		if d == weekday {
			return true
		}
	}
	return false
}

// JoinWeekdays normalizes a weekday slice into the stored representation.
func JoinWeekdays(days []int) string {
	seen := make(map[int]bool)
	var kept []int
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		kept = append(kept, d)
	}
	sort.Ints(kept)
	parts := make([]string, len(kept))
	for i, d := range kept {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
