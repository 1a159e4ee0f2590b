/*
Package sqlite provides the SQLite-backed implementation of rank.Store.

PURPOSE:
  Production persistence for members, sections, events, semesters, the
  two aggregate tables and the participation set. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  members:           Identity records, unique normalized identifier
  sections:          Organizational units
  event_types:       Point value source (default_points)
  events:            Dated occurrences referencing an event type
  semesters:         Non-overlapping date windows
  section_members:   All-time aggregate rows (points_all)
  section_semesters: Per-semester aggregate rows (points, threshold)
  participations:    Ground truth, unique per (event_id, member_id)

ATOMIC COMMIT:
  Commit runs in one sql.Tx. The aggregate updates are relative
  (SET points = points + ?), never read-modify-write, so SQLite's single
  writer plus the transaction boundary make the triple write both
  failure-atomic and lost-update free. If any statement misses its row,
  the whole transaction rolls back.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block and crash recovery is cleaner.

SEE ALSO:
  - rank/store.go: Interface definitions and the Commit contract
  - rank/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/tzk/rankup/rank"
)

// Store implements rank.Store using SQLite.
type Store struct {
	db *sql.DB
}

var _ rank.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The sqlite3 driver rejects concurrent writers; serialize on one
	// connection instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		verified INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_types (
		id TEXT PRIMARY KEY,
		section_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		default_points INTEGER NOT NULL CHECK (default_points >= 0)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		section_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		event_type_id TEXT NOT NULL REFERENCES event_types(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_section ON events(section_id);

	CREATE TABLE IF NOT EXISTS semesters (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date_from TEXT NOT NULL,
		date_to TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS section_members (
		member_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		rank TEXT NOT NULL DEFAULT 'member',
		points_all INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (member_id, section_id)
	);

	CREATE INDEX IF NOT EXISTS idx_section_members_section
		ON section_members(section_id);

	CREATE TABLE IF NOT EXISTS section_semesters (
		member_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		semester_id TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		threshold INTEGER NOT NULL DEFAULT 12,
		PRIMARY KEY (member_id, section_id, semester_id)
	);

	CREATE INDEX IF NOT EXISTS idx_section_semesters_section_semester
		ON section_semesters(section_id, semester_id);

	CREATE TABLE IF NOT EXISTS participations (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		event_id TEXT NOT NULL
	);

	-- A member cannot participate twice in the same event.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_participation
		ON participations(event_id, member_id);

	CREATE INDEX IF NOT EXISTS idx_participations_member
		ON participations(member_id);
	CREATE INDEX IF NOT EXISTS idx_participations_event
		ON participations(event_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBER DIRECTORY
// =============================================================================

const memberColumns = "id, identifier, first_name, last_name, email, verified"

func scanMember(row *sql.Row) (*rank.Member, error) {
	var m rank.Member
	var verified int
	err := row.Scan(&m.ID, &m.Identifier, &m.FirstName, &m.LastName, &m.Email, &verified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Verified = verified != 0
	return &m, nil
}

func (s *Store) MemberByID(ctx context.Context, id rank.MemberID) (*rank.Member, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	return scanMember(row)
}

func (s *Store) MemberByIdentifier(ctx context.Context, identifier string) (*rank.Member, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE identifier = ?", identifier)
	return scanMember(row)
}

func (s *Store) InsertMember(ctx context.Context, m rank.Member) error {
	verified := 0
	if m.Verified {
		verified = 1
	}
	// The UNIQUE constraint on identifier is the serialization point;
	// a read-then-insert would race between concurrent imports.
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.Identifier, m.FirstName, m.LastName, m.Email, verified)
	if isUniqueViolation(err) {
		return rank.ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// =============================================================================
// EVENT CATALOG
// =============================================================================

func (s *Store) EventByID(ctx context.Context, id rank.EventID) (*rank.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.section_id, e.name, e.date,
		       t.id, t.section_id, t.name, t.default_points
		FROM events e JOIN event_types t ON t.id = e.event_type_id
		WHERE e.id = ?`, id)

	var e rank.Event
	var date string
	err := row.Scan(&e.ID, &e.SectionID, &e.Name, &date,
		&e.EventType.ID, &e.EventType.SectionID, &e.EventType.Name, &e.EventType.DefaultPoints)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Date, err = rank.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("corrupt event date %q: %w", date, err)
	}
	return &e, nil
}

func (s *Store) SectionByID(ctx context.Context, id rank.SectionID) (*rank.Section, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name FROM sections WHERE id = ?", id)
	var sec rank.Section
	err := row.Scan(&sec.ID, &sec.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

func (s *Store) InsertSection(ctx context.Context, sec rank.Section) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sections (id, name) VALUES (?, ?)", sec.ID, sec.Name)
	return err
}

func (s *Store) InsertEvent(ctx context.Context, e rank.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO event_types (id, section_id, name, default_points) VALUES (?, ?, ?, ?)",
		e.EventType.ID, e.EventType.SectionID, e.EventType.Name, e.EventType.DefaultPoints)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO events (id, section_id, name, date, event_type_id) VALUES (?, ?, ?, ?, ?)",
		e.ID, e.SectionID, e.Name, e.Date.String(), e.EventType.ID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SEMESTER REPO
// =============================================================================

func scanSemester(scan func(dest ...any) error) (*rank.Semester, error) {
	var sem rank.Semester
	var from, to string
	if err := scan(&sem.ID, &sem.Name, &from, &to); err != nil {
		return nil, err
	}
	var err error
	if sem.DateFrom, err = rank.ParseDate(from); err != nil {
		return nil, fmt.Errorf("corrupt semester date %q: %w", from, err)
	}
	if sem.DateTo, err = rank.ParseDate(to); err != nil {
		return nil, fmt.Errorf("corrupt semester date %q: %w", to, err)
	}
	return &sem, nil
}

func (s *Store) SemesterByID(ctx context.Context, id rank.SemesterID) (*rank.Semester, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, date_from, date_to FROM semesters WHERE id = ?", id)
	sem, err := scanSemester(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sem, err
}

func (s *Store) SemesterByName(ctx context.Context, name string) (*rank.Semester, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, date_from, date_to FROM semesters WHERE name = ?", name)
	sem, err := scanSemester(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sem, err
}

func (s *Store) ListSemesters(ctx context.Context) ([]rank.Semester, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, date_from, date_to FROM semesters ORDER BY date_to DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rank.Semester
	for rows.Next() {
		sem, err := scanSemester(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *sem)
	}
	return out, rows.Err()
}

func (s *Store) InsertSemester(ctx context.Context, sem rank.Semester) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO semesters (id, name, date_from, date_to) VALUES (?, ?, ?, ?)",
		sem.ID, sem.Name, sem.DateFrom.String(), sem.DateTo.String())
	return err
}

func (s *Store) UpdateSemester(ctx context.Context, sem rank.Semester) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE semesters SET name = ?, date_from = ?, date_to = ? WHERE id = ?",
		sem.Name, sem.DateFrom.String(), sem.DateTo.String(), sem.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return rank.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSemester(ctx context.Context, id rank.SemesterID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM semesters WHERE id = ?", id)
	return err
}

// =============================================================================
// AGGREGATE REGISTRIES
// =============================================================================

func (s *Store) SectionMember(ctx context.Context, memberID rank.MemberID, sectionID rank.SectionID) (*rank.SectionMember, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT member_id, section_id, rank, points_all
		FROM section_members WHERE member_id = ? AND section_id = ?`,
		memberID, sectionID)

	var sm rank.SectionMember
	err := row.Scan(&sm.MemberID, &sm.SectionID, &sm.Rank, &sm.PointsAll)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sm, nil
}

func (s *Store) ListSectionMembers(ctx context.Context, sectionID rank.SectionID) ([]rank.SectionMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, section_id, rank, points_all
		FROM section_members WHERE section_id = ? ORDER BY member_id`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rank.SectionMember
	for rows.Next() {
		var sm rank.SectionMember
		if err := rows.Scan(&sm.MemberID, &sm.SectionID, &sm.Rank, &sm.PointsAll); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) UpsertSectionMember(ctx context.Context, sm rank.SectionMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO section_members (member_id, section_id, rank, points_all)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (member_id, section_id)
		DO UPDATE SET rank = excluded.rank, points_all = excluded.points_all`,
		sm.MemberID, sm.SectionID, sm.Rank, sm.PointsAll)
	return err
}

func (s *Store) SectionSemester(ctx context.Context, memberID rank.MemberID, sectionID rank.SectionID, semesterID rank.SemesterID) (*rank.SectionSemester, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT member_id, section_id, semester_id, points, threshold
		FROM section_semesters
		WHERE member_id = ? AND section_id = ? AND semester_id = ?`,
		memberID, sectionID, semesterID)

	var ss rank.SectionSemester
	err := row.Scan(&ss.MemberID, &ss.SectionID, &ss.SemesterID, &ss.Points, &ss.Threshold)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

func (s *Store) ListSectionSemesters(ctx context.Context, sectionID rank.SectionID, semesterID rank.SemesterID) ([]rank.SectionSemester, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, section_id, semester_id, points, threshold
		FROM section_semesters
		WHERE section_id = ? AND semester_id = ? ORDER BY member_id`,
		sectionID, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rank.SectionSemester
	for rows.Next() {
		var ss rank.SectionSemester
		if err := rows.Scan(&ss.MemberID, &ss.SectionID, &ss.SemesterID, &ss.Points, &ss.Threshold); err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

func (s *Store) UpsertSectionSemester(ctx context.Context, ss rank.SectionSemester) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO section_semesters (member_id, section_id, semester_id, points, threshold)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (member_id, section_id, semester_id)
		DO UPDATE SET points = excluded.points, threshold = excluded.threshold`,
		ss.MemberID, ss.SectionID, ss.SemesterID, ss.Points, ss.Threshold)
	return err
}

// =============================================================================
// PARTICIPATION REPO
// =============================================================================

func scanParticipation(row *sql.Row) (*rank.Participation, error) {
	var p rank.Participation
	err := row.Scan(&p.ID, &p.MemberID, &p.EventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ParticipationByID(ctx context.Context, id rank.ParticipationID) (*rank.Participation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, member_id, event_id FROM participations WHERE id = ?", id)
	return scanParticipation(row)
}

func (s *Store) ParticipationByEventAndMember(ctx context.Context, eventID rank.EventID, memberID rank.MemberID) (*rank.Participation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, member_id, event_id FROM participations WHERE event_id = ? AND member_id = ?",
		eventID, memberID)
	return scanParticipation(row)
}

func (s *Store) ParticipationsByEvent(ctx context.Context, eventID rank.EventID) ([]rank.Participation, error) {
	return s.listParticipations(ctx,
		"SELECT id, member_id, event_id FROM participations WHERE event_id = ? ORDER BY id", eventID)
}

func (s *Store) ParticipationsByMember(ctx context.Context, memberID rank.MemberID) ([]rank.Participation, error) {
	return s.listParticipations(ctx,
		"SELECT id, member_id, event_id FROM participations WHERE member_id = ? ORDER BY id", memberID)
}

func (s *Store) listParticipations(ctx context.Context, query string, arg any) ([]rank.Participation, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rank.Participation
	for rows.Next() {
		var p rank.Participation
		if err := rows.Scan(&p.ID, &p.MemberID, &p.EventID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// ATOMIC COMMIT
// =============================================================================

// Commit applies the participation write and both aggregate deltas in a
// single transaction. The aggregate updates are relative increments;
// any statement that misses its row rolls the whole transaction back.
func (s *Store) Commit(ctx context.Context, mut rank.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := mut.Participation
	delta := mut.Points

	switch mut.Op {
	case rank.OpCreate:
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM participations WHERE event_id = ? AND member_id = ?",
			p.EventID, p.MemberID).Scan(&existing)
		if err == nil {
			return rank.ErrConflict
		}
		if err != sql.ErrNoRows {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO participations (id, member_id, event_id) VALUES (?, ?, ?)",
			p.ID, p.MemberID, p.EventID); err != nil {
			return err
		}

	case rank.OpDelete:
		res, err := tx.ExecContext(ctx, "DELETE FROM participations WHERE id = ?", p.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return rank.ErrNotFound
		}
		delta = -delta
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE section_members SET points_all = points_all + ?
		WHERE member_id = ? AND section_id = ?`,
		delta, p.MemberID, mut.SectionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return rank.ErrNotFound
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE section_semesters SET points = points + ?
		WHERE member_id = ? AND section_id = ? AND semester_id = ?`,
		delta, p.MemberID, mut.SectionID, mut.SemesterID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return rank.ErrNotFound
	}

	return tx.Commit()
}
