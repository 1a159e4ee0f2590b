/*
membership.go - Section membership lifecycle

PURPOSE:
  Creates the aggregate rows that the ledger later increments. When a
  member joins a section, the all-time row starts at zero and one
  per-semester row is created for every semester that exists at join
  time, also at zero and with the default pass threshold.

KNOWN LIMITATION:
  Semesters created after a member joined do not retroactively gain
  per-semester rows. BackfillSemester is the explicit pass that adds
  the missing zero rows for one semester.
*/
package rank

import "context"

// DefaultThreshold is the pass threshold a new per-semester row starts with.
const DefaultThreshold = 12

// DefaultRank is the rank assigned when the caller specifies none.
const DefaultRank = "member"

// MembershipService manages section membership and its aggregate rows.
type MembershipService struct {
	store Store
}

func NewMembershipService(store Store) *MembershipService {
	return &MembershipService{store: store}
}

// Join adds the member (looked up by normalized identifier) to the
// section: one SectionMember row at zero points plus one SectionSemester
// row per existing semester, zero points, default threshold.
func (m *MembershipService) Join(ctx context.Context, sectionID SectionID, identifier, rank string) (*SectionMember, error) {
	member, err := m.store.MemberByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, &NotFoundError{Kind: "member", Key: identifier}
	}

	section, err := m.store.SectionByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, &NotFoundError{Kind: "section", Key: string(sectionID)}
	}

	existing, err := m.store.SectionMember(ctx, member.ID, sectionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &MembershipConflictError{MemberID: member.ID, SectionID: sectionID}
	}

	if rank == "" {
		rank = DefaultRank
	}
	sm := SectionMember{
		MemberID:  member.ID,
		SectionID: sectionID,
		Rank:      rank,
		PointsAll: 0,
	}
	if err := m.store.UpsertSectionMember(ctx, sm); err != nil {
		return nil, err
	}

	semesters, err := m.store.ListSemesters(ctx)
	if err != nil {
		return nil, err
	}
	for _, sem := range semesters {
		ss := SectionSemester{
			MemberID:   member.ID,
			SectionID:  sectionID,
			SemesterID: sem.ID,
			Points:     0,
			Threshold:  DefaultThreshold,
		}
		if err := m.store.UpsertSectionSemester(ctx, ss); err != nil {
			return nil, err
		}
	}
	return &sm, nil
}

// JoinMany joins each member by identifier, skipping failures.
// Returns the memberships actually created.
func (m *MembershipService) JoinMany(ctx context.Context, sectionID SectionID, identifiers []string, rank string) ([]SectionMember, int, error) {
	var joined []SectionMember
	skipped := 0
	for _, id := range identifiers {
		sm, err := m.Join(ctx, sectionID, id, rank)
		if err != nil {
			skipped++
			continue
		}
		joined = append(joined, *sm)
	}
	return joined, skipped, nil
}

// BackfillSemester creates a zero per-semester row for every member of
// the section that lacks one for the given semester. Existing rows are
// left untouched.
func (m *MembershipService) BackfillSemester(ctx context.Context, sectionID SectionID, semesterID SemesterID) (int, error) {
	sem, err := m.store.SemesterByID(ctx, semesterID)
	if err != nil {
		return 0, err
	}
	if sem == nil {
		return 0, &NotFoundError{Kind: "semester", Key: string(semesterID)}
	}

	sms, err := m.store.ListSectionMembers(ctx, sectionID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, sm := range sms {
		ss, err := m.store.SectionSemester(ctx, sm.MemberID, sectionID, semesterID)
		if err != nil {
			return created, err
		}
		if ss != nil {
			continue
		}
		row := SectionSemester{
			MemberID:   sm.MemberID,
			SectionID:  sectionID,
			SemesterID: semesterID,
			Points:     0,
			Threshold:  DefaultThreshold,
		}
		if err := m.store.UpsertSectionSemester(ctx, row); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
