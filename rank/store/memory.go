// Package store provides the in-memory Store implementation used by
// tests and development servers.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements rank.Store. One mutex guards every operation, so a
// Commit is a single critical section: the participation write and both
// aggregate increments happen under the same lock, which makes the
// triple write failure-atomic and rules out lost updates between
// concurrent commits.
type Memory struct {
	mu sync.RWMutex

	members       map[rank.MemberID]rank.Member
	memberByIdent map[string]rank.MemberID
	sections      map[rank.SectionID]rank.Section
	events        map[rank.EventID]rank.Event
	semesters     map[rank.SemesterID]rank.Semester

	sectionMembers   map[smKey]rank.SectionMember
	sectionSemesters map[ssKey]rank.SectionSemester

	participations map[rank.ParticipationID]rank.Participation
	byEventMember  map[emKey]rank.ParticipationID
}

type smKey struct {
	Member  rank.MemberID
	Section rank.SectionID
}

type ssKey struct {
	Member   rank.MemberID
	Section  rank.SectionID
	Semester rank.SemesterID
}

type emKey struct {
	Event  rank.EventID
	Member rank.MemberID
}

func NewMemory() *Memory {
	return &Memory{
		members:          make(map[rank.MemberID]rank.Member),
		memberByIdent:    make(map[string]rank.MemberID),
		sections:         make(map[rank.SectionID]rank.Section),
		events:           make(map[rank.EventID]rank.Event),
		semesters:        make(map[rank.SemesterID]rank.Semester),
		sectionMembers:   make(map[smKey]rank.SectionMember),
		sectionSemesters: make(map[ssKey]rank.SectionSemester),
		participations:   make(map[rank.ParticipationID]rank.Participation),
		byEventMember:    make(map[emKey]rank.ParticipationID),
	}
}

var _ rank.Store = (*Memory)(nil)

// =============================================================================
// MEMBER DIRECTORY
// =============================================================================

func (m *Memory) MemberByID(_ context.Context, id rank.MemberID) (*rank.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if member, ok := m.members[id]; ok {
		return &member, nil
	}
	return nil, nil
}

func (m *Memory) MemberByIdentifier(_ context.Context, identifier string) (*rank.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.memberByIdent[identifier]; ok {
		member := m.members[id]
		return &member, nil
	}
	return nil, nil
}

func (m *Memory) InsertMember(_ context.Context, member rank.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memberByIdent[member.Identifier]; ok {
		return rank.ErrConflict
	}
	m.members[member.ID] = member
	m.memberByIdent[member.Identifier] = member.ID
	return nil
}

// =============================================================================
// EVENT CATALOG
// =============================================================================

func (m *Memory) EventByID(_ context.Context, id rank.EventID) (*rank.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *Memory) SectionByID(_ context.Context, id rank.SectionID) (*rank.Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sections[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) InsertSection(_ context.Context, s rank.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[s.ID] = s
	return nil
}

func (m *Memory) InsertEvent(_ context.Context, e rank.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
	return nil
}

// =============================================================================
// SEMESTER REPO
// =============================================================================

func (m *Memory) SemesterByID(_ context.Context, id rank.SemesterID) (*rank.Semester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.semesters[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) SemesterByName(_ context.Context, name string) (*rank.Semester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.semesters {
		if s.Name == name {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListSemesters(_ context.Context) ([]rank.Semester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rank.Semester, 0, len(m.semesters))
	for _, s := range m.semesters {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].DateTo.Before(out[i].DateTo) })
	return out, nil
}

func (m *Memory) InsertSemester(_ context.Context, s rank.Semester) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.semesters[s.ID] = s
	return nil
}

func (m *Memory) UpdateSemester(_ context.Context, s rank.Semester) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.semesters[s.ID]; !ok {
		return rank.ErrNotFound
	}
	m.semesters[s.ID] = s
	return nil
}

func (m *Memory) DeleteSemester(_ context.Context, id rank.SemesterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.semesters, id)
	return nil
}

// =============================================================================
// AGGREGATE REGISTRIES
// =============================================================================

func (m *Memory) SectionMember(_ context.Context, memberID rank.MemberID, sectionID rank.SectionID) (*rank.SectionMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sm, ok := m.sectionMembers[smKey{memberID, sectionID}]; ok {
		return &sm, nil
	}
	return nil, nil
}

func (m *Memory) ListSectionMembers(_ context.Context, sectionID rank.SectionID) ([]rank.SectionMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rank.SectionMember
	for _, sm := range m.sectionMembers {
		if sm.SectionID == sectionID {
			out = append(out, sm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (m *Memory) UpsertSectionMember(_ context.Context, sm rank.SectionMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sectionMembers[smKey{sm.MemberID, sm.SectionID}] = sm
	return nil
}

func (m *Memory) SectionSemester(_ context.Context, memberID rank.MemberID, sectionID rank.SectionID, semesterID rank.SemesterID) (*rank.SectionSemester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ss, ok := m.sectionSemesters[ssKey{memberID, sectionID, semesterID}]; ok {
		return &ss, nil
	}
	return nil, nil
}

func (m *Memory) ListSectionSemesters(_ context.Context, sectionID rank.SectionID, semesterID rank.SemesterID) ([]rank.SectionSemester, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rank.SectionSemester
	for _, ss := range m.sectionSemesters {
		if ss.SectionID == sectionID && ss.SemesterID == semesterID {
			out = append(out, ss)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (m *Memory) UpsertSectionSemester(_ context.Context, ss rank.SectionSemester) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sectionSemesters[ssKey{ss.MemberID, ss.SectionID, ss.SemesterID}] = ss
	return nil
}

// =============================================================================
// PARTICIPATION REPO
// =============================================================================

func (m *Memory) ParticipationByID(_ context.Context, id rank.ParticipationID) (*rank.Participation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.participations[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ParticipationByEventAndMember(_ context.Context, eventID rank.EventID, memberID rank.MemberID) (*rank.Participation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byEventMember[emKey{eventID, memberID}]; ok {
		p := m.participations[id]
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ParticipationsByEvent(_ context.Context, eventID rank.EventID) ([]rank.Participation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rank.Participation
	for _, p := range m.participations {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ParticipationsByMember(_ context.Context, memberID rank.MemberID) ([]rank.Participation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []rank.Participation
	for _, p := range m.participations {
		if p.MemberID == memberID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// ATOMIC COMMIT
// =============================================================================

// Commit applies the participation write and both aggregate deltas under
// one lock hold. All checks run before the first write, so a failed
// commit leaves no partial mutation.
func (m *Memory) Commit(_ context.Context, mut rank.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := mut.Participation
	sk := smKey{p.MemberID, mut.SectionID}
	xk := ssKey{p.MemberID, mut.SectionID, mut.SemesterID}
	ek := emKey{p.EventID, p.MemberID}

	sm, okSM := m.sectionMembers[sk]
	ss, okSS := m.sectionSemesters[xk]
	if !okSM || !okSS {
		return rank.ErrNotFound
	}

	switch mut.Op {
	case rank.OpCreate:
		if _, exists := m.byEventMember[ek]; exists {
			return rank.ErrConflict
		}
		m.participations[p.ID] = p
		m.byEventMember[ek] = p.ID
		sm.PointsAll += mut.Points
		ss.Points += mut.Points

	case rank.OpDelete:
		if _, exists := m.participations[p.ID]; !exists {
			return rank.ErrNotFound
		}
		delete(m.participations, p.ID)
		delete(m.byEventMember, ek)
		sm.PointsAll -= mut.Points
		ss.Points -= mut.Points
	}

	m.sectionMembers[sk] = sm
	m.sectionSemesters[xk] = ss
	return nil
}
