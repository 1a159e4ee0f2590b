/*
Package rank provides the core points ledger and aggregation engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  member participation at section events and keeping two denormalized
  point totals consistent with the underlying participation set:
  an all-time total per (member, section) and a per-semester total
  per (member, section, semester).

KEY CONCEPTS IN THIS FILE (types.go):
  - Member/Section/Event/EventType: the organizational model
  - Semester: a named, non-overlapping date window
  - SectionMember: all-time aggregate row (PointsAll)
  - SectionSemester: per-semester aggregate row (Points, Threshold)
  - Participation: the ground-truth (member, event) fact
  - Date: day-granular time used for all windowing

DESIGN PRINCIPLES:
  1. Participations are the source of truth; aggregates are caches
  2. Every mutation routes through one failure-atomic store commit
  3. Closed intervals everywhere: [DateFrom, DateTo] contains both ends
  4. Integer points only; no fractional scoring exists in this domain

SEE ALSO:
  - ledger.go: Mutation orchestration and threshold queries
  - semester.go: Interval validation and lookup
  - reconcile.go: Aggregate recomputation from ground truth
  - store.go: Persistence contracts
*/
package rank

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type SectionID string
type EventID string
type EventTypeID string
type SemesterID string
type ParticipationID string

// =============================================================================
// DATE - Day-granular time point
// =============================================================================

// Date is a calendar day in UTC. All event dates and semester boundaries
// are day-granular; comparisons ignore any sub-day component.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in ISO form (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// ORGANIZATIONAL MODEL
// =============================================================================

// Member is a person in the organization. The Identifier is the unique
// normalized external identifier (see roster.Normalize); it is immutable
// once set and members are never silently merged.
type Member struct {
	ID         MemberID
	Identifier string
	FirstName  string
	LastName   string
	Email      string
	Verified   bool
}

// Section is a named organizational unit members belong to.
type Section struct {
	ID   SectionID
	Name string
}

// EventType categorizes events and carries the fixed point value awarded
// per participation. Changing DefaultPoints never retroactively alters
// already-computed aggregates; only a reconciliation pass does that.
type EventType struct {
	ID            EventTypeID
	SectionID     SectionID // empty = global type
	Name          string
	DefaultPoints int
}

// Event is a dated occurrence within exactly one section.
type Event struct {
	ID        EventID
	SectionID SectionID
	Name      string
	Date      Date
	EventType EventType
}

// Points returns the point value one participation in this event awards.
func (e Event) Points() int { return e.EventType.DefaultPoints }

// =============================================================================
// SEMESTER - Non-overlapping date window
// =============================================================================

// Semester is a named global date window. The closed intervals
// [DateFrom, DateTo] of any two semesters never overlap; touching
// endpoints conflict (see SemesterService).
type Semester struct {
	ID       SemesterID
	Name     string
	DateFrom Date
	DateTo   Date
}

// Contains reports whether d falls within the closed window [DateFrom, DateTo].
func (s Semester) Contains(d Date) bool {
	return d.AfterOrEqual(s.DateFrom) && d.BeforeOrEqual(s.DateTo)
}

// Overlaps reports whether the closed windows of s and other intersect.
func (s Semester) Overlaps(other Semester) bool {
	return !s.DateFrom.After(other.DateTo) && !other.DateFrom.After(s.DateTo)
}

func (s Semester) Window() string {
	return "[" + s.DateFrom.String() + ", " + s.DateTo.String() + "]"
}

// =============================================================================
// AGGREGATE ROWS - Derived caches, never hand-edited
// =============================================================================

// SectionMember links a member to a section and caches the all-time point
// total: the sum of DefaultPoints over every participation of the member
// at events of the section.
type SectionMember struct {
	MemberID  MemberID
	SectionID SectionID
	Rank      string
	PointsAll int
}

// SectionSemester caches the per-semester point total for a
// (member, section, semester) triple, restricted to participations whose
// event date falls within the semester window. Threshold is the minimum
// total required to pass the semester.
type SectionSemester struct {
	MemberID   MemberID
	SectionID  SectionID
	SemesterID SemesterID
	Points     int
	Threshold  int
}

// =============================================================================
// PARTICIPATION - The ground-truth fact
// =============================================================================

// Participation records that a member was credited for an event.
// Unique per (member, event); both aggregates are derived functions of
// the participation set.
type Participation struct {
	ID       ParticipationID
	MemberID MemberID
	EventID  EventID
}
