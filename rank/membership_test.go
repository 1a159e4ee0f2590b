package rank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// JOIN TESTS
// =============================================================================

func TestMembership_Join_CreatesAggregateRows(t *testing.T) {
	// GIVEN: Two semesters exist
	// WHEN: m1 joins the section
	// THEN: One zero all-time row plus one zero per-semester row per
	//       semester, each with the default threshold

	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	sem1 := f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))
	sem2 := f.addSemester(t, "Summer 2024", d(2024, time.June, 2), d(2024, time.September, 1))

	sm, err := f.membership.Join(f.ctx, "sec-1", "0036512345", "")
	require.NoError(t, err)
	assert.Equal(t, rank.DefaultRank, sm.Rank)
	assert.Zero(t, sm.PointsAll)

	for _, semID := range []rank.SemesterID{sem1.ID, sem2.ID} {
		ss, err := f.store.SectionSemester(f.ctx, "m1", "sec-1", semID)
		require.NoError(t, err)
		require.NotNil(t, ss)
		assert.Zero(t, ss.Points)
		assert.Equal(t, rank.DefaultThreshold, ss.Threshold)
	}
}

func TestMembership_Join_Twice_Conflict(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")

	_, err := f.membership.Join(f.ctx, "sec-1", "0036512345", "captain")
	require.NoError(t, err)

	_, err = f.membership.Join(f.ctx, "sec-1", "0036512345", "")
	assert.True(t, rank.IsConflict(err))

	// The error names the membership, not a participation
	var mc *rank.MembershipConflictError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, rank.MemberID("m1"), mc.MemberID)
	assert.Equal(t, rank.SectionID("sec-1"), mc.SectionID)
	assert.Contains(t, err.Error(), "already belongs to section")
}

func TestMembership_Join_UnknownIdentifier_NotFound(t *testing.T) {
	f := newFixture(t)
	f.addSection(t, "sec-1", "Football")

	_, err := f.membership.Join(f.ctx, "sec-1", "0036999999", "")
	assert.True(t, rank.IsNotFound(err))
}

func TestMembership_JoinMany_SkipsFailures(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addMember(t, "m2", "0069512346")
	f.addSection(t, "sec-1", "Football")

	joined, skipped, err := f.membership.JoinMany(f.ctx, "sec-1",
		[]string{"0036512345", "0099999999", "0069512346"}, "")
	require.NoError(t, err)
	assert.Len(t, joined, 2)
	assert.Equal(t, 1, skipped)
}

// =============================================================================
// BACKFILL TESTS
// =============================================================================

func TestMembership_BackfillSemester(t *testing.T) {
	// GIVEN: m1 joined before Summer 2024 existed
	// WHEN: Backfilling the section for Summer 2024
	// THEN: Exactly the missing zero row is created; a second pass is a no-op

	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))
	f.join(t, "sec-1", "0036512345")

	sem2 := f.addSemester(t, "Summer 2024", d(2024, time.June, 2), d(2024, time.September, 1))

	ss, err := f.store.SectionSemester(f.ctx, "m1", "sec-1", sem2.ID)
	require.NoError(t, err)
	assert.Nil(t, ss, "no retroactive row before backfill")

	created, err := f.membership.BackfillSemester(f.ctx, "sec-1", sem2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	ss, err = f.store.SectionSemester(f.ctx, "m1", "sec-1", sem2.ID)
	require.NoError(t, err)
	require.NotNil(t, ss)
	assert.Zero(t, ss.Points)
	assert.Equal(t, rank.DefaultThreshold, ss.Threshold)

	created, err = f.membership.BackfillSemester(f.ctx, "sec-1", sem2.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestMembership_BackfillSemester_UnknownSemester_NotFound(t *testing.T) {
	f := newFixture(t)
	f.addSection(t, "sec-1", "Football")

	_, err := f.membership.BackfillSemester(f.ctx, "sec-1", "nope")
	assert.True(t, rank.IsNotFound(err))
}
