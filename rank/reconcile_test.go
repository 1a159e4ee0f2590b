package rank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// RECONCILIATION TESTS
// =============================================================================

func TestReconciler_RepairsDriftedAggregates(t *testing.T) {
	// GIVEN: m1 legitimately holds 5 points, then both aggregate rows are
	//        corrupted out-of-band
	// WHEN: Reconciling the section for the semester
	// THEN: Both rows are recomputed from raw participations

	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	sem := f.addSemester(t, "Sem1", d(2024, time.January, 1), d(2024, time.June, 30))
	f.join(t, "sec-1", "0036512345")
	f.addEvent(t, "e1", "sec-1", d(2024, time.March, 1), 5)

	_, err := f.ledger.CreateSingle(f.ctx, "sec-1", "m1", "e1")
	require.NoError(t, err)

	// Corrupt both rows
	require.NoError(t, f.store.UpsertSectionMember(f.ctx, rank.SectionMember{
		MemberID: "m1", SectionID: "sec-1", Rank: "member", PointsAll: 999,
	}))
	require.NoError(t, f.store.UpsertSectionSemester(f.ctx, rank.SectionSemester{
		MemberID: "m1", SectionID: "sec-1", SemesterID: sem.ID, Points: -7, Threshold: 12,
	}))

	require.NoError(t, f.reconciler.Reconcile(f.ctx, "sec-1", sem.ID))

	assert.Equal(t, 5, f.pointsAll(t, "m1", "sec-1"))
	assert.Equal(t, 5, f.semesterPoints(t, "m1", "sec-1", sem.ID))
}

func TestReconciler_Idempotent(t *testing.T) {
	// Two passes with no intervening mutation produce identical values.
	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	sem := f.addSemester(t, "Sem1", d(2024, time.January, 1), d(2024, time.June, 30))
	f.join(t, "sec-1", "0036512345")
	f.addEvent(t, "e1", "sec-1", d(2024, time.March, 1), 5)
	f.addEvent(t, "e2", "sec-1", d(2024, time.April, 1), 3)

	_, err := f.ledger.CreateSingle(f.ctx, "sec-1", "m1", "e1")
	require.NoError(t, err)
	_, err = f.ledger.CreateSingle(f.ctx, "sec-1", "m1", "e2")
	require.NoError(t, err)

	require.NoError(t, f.reconciler.Reconcile(f.ctx, "sec-1", sem.ID))
	first := f.pointsAll(t, "m1", "sec-1")
	firstSem := f.semesterPoints(t, "m1", "sec-1", sem.ID)

	require.NoError(t, f.reconciler.Reconcile(f.ctx, "sec-1", sem.ID))
	assert.Equal(t, first, f.pointsAll(t, "m1", "sec-1"))
	assert.Equal(t, firstSem, f.semesterPoints(t, "m1", "sec-1", sem.ID))
	assert.Equal(t, 8, first)
	assert.Equal(t, 8, firstSem)
}

func TestReconciler_WindowsTheSemesterTotal(t *testing.T) {
	// GIVEN: Participations in two different semesters
	// WHEN: Reconciling for the first semester
	// THEN: The semester row counts only events dated within its window;
	//       the all-time row counts everything

	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	sem1 := f.addSemester(t, "Winter", d(2024, time.January, 1), d(2024, time.June, 1))
	sem2 := f.addSemester(t, "Summer", d(2024, time.June, 2), d(2024, time.September, 1))
	f.join(t, "sec-1", "0036512345")
	f.addEvent(t, "e-winter", "sec-1", d(2024, time.March, 1), 5)
	f.addEvent(t, "e-summer", "sec-1", d(2024, time.July, 1), 3)

	_, err := f.ledger.CreateSingle(f.ctx, "sec-1", "m1", "e-winter")
	require.NoError(t, err)
	_, err = f.ledger.CreateSingle(f.ctx, "sec-1", "m1", "e-summer")
	require.NoError(t, err)

	require.NoError(t, f.reconciler.Reconcile(f.ctx, "sec-1", sem1.ID))

	assert.Equal(t, 8, f.pointsAll(t, "m1", "sec-1"))
	assert.Equal(t, 5, f.semesterPoints(t, "m1", "sec-1", sem1.ID))
	assert.Equal(t, 3, f.semesterPoints(t, "m1", "sec-1", sem2.ID))
}

func TestReconciler_UnknownSectionOrSemester_NotFound(t *testing.T) {
	f := newFixture(t)
	f.addSection(t, "sec-1", "Football")
	sem := f.addSemester(t, "Sem1", d(2024, time.January, 1), d(2024, time.June, 30))

	err := f.reconciler.Reconcile(f.ctx, "nope", sem.ID)
	assert.True(t, rank.IsNotFound(err))

	err = f.reconciler.Reconcile(f.ctx, "sec-1", "nope")
	assert.True(t, rank.IsNotFound(err))
}

func TestReconciler_SkipsMembersWithoutSemesterRow(t *testing.T) {
	// A member who joined before the semester existed keeps the all-time
	// refresh but gains no per-semester row; BackfillSemester does that.
	f := newFixture(t)
	f.addMember(t, "m1", "0036512345")
	f.addSection(t, "sec-1", "Football")
	f.join(t, "sec-1", "0036512345")
	sem := f.addSemester(t, "Sem1", d(2024, time.January, 1), d(2024, time.June, 30))

	require.NoError(t, f.reconciler.Reconcile(f.ctx, "sec-1", sem.ID))

	ss, err := f.store.SectionSemester(f.ctx, "m1", "sec-1", sem.ID)
	require.NoError(t, err)
	assert.Nil(t, ss)
}
