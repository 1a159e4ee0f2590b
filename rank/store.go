/*
store.go - Persistence contracts for the rank engine

PURPOSE:
  Defines the interfaces between the domain logic and storage. The engine
  never talks to a database directly; it resolves entities through these
  lookups and applies every participation mutation through one
  failure-atomic Commit.

LOOKUP CONVENTION:
  Single-entity lookups return (nil, nil) when the entity is absent.
  Only infrastructure failures produce a non-nil error. The ledger turns
  nil results into NotFoundError with domain context.

ATOMICITY CONTRACT:
  Commit applies three writes as one unit: the participation insert (or
  delete) plus the two aggregate deltas. Either all take effect or none
  do. Implementations must apply the deltas as relative increments under
  a single serialization point (mutex, SQL transaction), never as a
  read-modify-write sequence, so concurrent commits for the same member
  cannot lose updates.

IMPLEMENTATIONS:
  - rank/store/memory.go: In-memory store for tests and development
  - store/sqlite/sqlite.go: Production SQLite store

SEE ALSO:
  - ledger.go: The only caller of Commit
  - reconcile.go: Uses the Upsert methods to overwrite drifted aggregates
*/
package rank

import "context"

// =============================================================================
// DIRECTORY AND CATALOG - Consumed contracts
// =============================================================================

// MemberDirectory resolves member identity records.
type MemberDirectory interface {
	// MemberByID returns the member or (nil, nil) if absent.
	MemberByID(ctx context.Context, id MemberID) (*Member, error)

	// MemberByIdentifier looks up by the unique normalized identifier.
	MemberByIdentifier(ctx context.Context, identifier string) (*Member, error)

	// InsertMember adds a member. Fails with ErrConflict if the
	// normalized identifier is already in use.
	InsertMember(ctx context.Context, m Member) error
}

// EventCatalog resolves events with section, date and point value populated.
type EventCatalog interface {
	EventByID(ctx context.Context, id EventID) (*Event, error)
	SectionByID(ctx context.Context, id SectionID) (*Section, error)

	// Seeding operations; event CRUD itself lives outside the core.
	InsertSection(ctx context.Context, s Section) error
	InsertEvent(ctx context.Context, e Event) error
}

// =============================================================================
// SEMESTER REPOSITORY
// =============================================================================

type SemesterRepo interface {
	SemesterByID(ctx context.Context, id SemesterID) (*Semester, error)
	SemesterByName(ctx context.Context, name string) (*Semester, error)

	// ListSemesters returns all semesters ordered by DateTo descending.
	ListSemesters(ctx context.Context) ([]Semester, error)

	InsertSemester(ctx context.Context, s Semester) error
	UpdateSemester(ctx context.Context, s Semester) error
	DeleteSemester(ctx context.Context, id SemesterID) error
}

// =============================================================================
// AGGREGATE REGISTRIES
// =============================================================================

// SectionMemberRegistry stores the all-time aggregate rows.
type SectionMemberRegistry interface {
	SectionMember(ctx context.Context, memberID MemberID, sectionID SectionID) (*SectionMember, error)
	ListSectionMembers(ctx context.Context, sectionID SectionID) ([]SectionMember, error)

	// UpsertSectionMember overwrites the row. Reconciliation only;
	// incremental paths go through Commit.
	UpsertSectionMember(ctx context.Context, sm SectionMember) error
}

// SectionSemesterRegistry stores the per-semester aggregate rows.
type SectionSemesterRegistry interface {
	SectionSemester(ctx context.Context, memberID MemberID, sectionID SectionID, semesterID SemesterID) (*SectionSemester, error)
	ListSectionSemesters(ctx context.Context, sectionID SectionID, semesterID SemesterID) ([]SectionSemester, error)
	UpsertSectionSemester(ctx context.Context, ss SectionSemester) error
}

// =============================================================================
// PARTICIPATION REPOSITORY
// =============================================================================

type ParticipationRepo interface {
	ParticipationByID(ctx context.Context, id ParticipationID) (*Participation, error)
	ParticipationByEventAndMember(ctx context.Context, eventID EventID, memberID MemberID) (*Participation, error)
	ParticipationsByEvent(ctx context.Context, eventID EventID) ([]Participation, error)
	ParticipationsByMember(ctx context.Context, memberID MemberID) ([]Participation, error)
}

// =============================================================================
// ATOMIC MUTATION
// =============================================================================

type MutationOp int

const (
	OpCreate MutationOp = iota
	OpDelete
)

// Mutation is the unit Commit applies atomically: one participation
// insert or delete plus the matching point delta on both aggregate rows.
// Points is always the event's positive point value; Commit negates it
// for OpDelete.
type Mutation struct {
	Op            MutationOp
	Participation Participation
	SectionID     SectionID
	SemesterID    SemesterID
	Points        int
}

// =============================================================================
// STORE - Everything the engine needs
// =============================================================================

type Store interface {
	MemberDirectory
	EventCatalog
	SemesterRepo
	SectionMemberRegistry
	SectionSemesterRegistry
	ParticipationRepo

	// Commit applies the mutation as one failure-atomic unit.
	// For OpCreate it fails with ErrConflict if a participation for the
	// (member, event) pair exists, and with ErrNotFound if either
	// aggregate row is missing. For OpDelete it fails with ErrNotFound
	// if the participation or either aggregate row is missing.
	Commit(ctx context.Context, mut Mutation) error
}
