package rank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzk/rankup/rank"
)

// =============================================================================
// OVERLAP INVARIANT TESTS
// =============================================================================

func TestSemesterService_Create_Valid(t *testing.T) {
	f := newFixture(t)

	sem, err := f.semesters.Create(f.ctx, "Winter 2024",
		d(2024, time.January, 1), d(2024, time.June, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, sem.ID)
	assert.Equal(t, "Winter 2024", sem.Name)
}

func TestSemesterService_Create_Overlap_Rejected(t *testing.T) {
	// GIVEN: Winter 2024 spans [2024-01-01, 2024-06-01]
	// WHEN: Creating a semester starting 2024-05-01
	// THEN: Rejected, both windows would claim May

	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	_, err := f.semesters.Create(f.ctx, "Summer 2024",
		d(2024, time.May, 1), d(2024, time.September, 1))
	assert.Error(t, err)
	assert.True(t, rank.IsValidation(err))
}

func TestSemesterService_Create_TouchingEndpoints_Rejected(t *testing.T) {
	// GIVEN: Winter 2024 ends 2024-06-01
	// WHEN: Creating a semester starting exactly 2024-06-01
	// THEN: Rejected; the windows are closed, so the shared day conflicts

	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	_, err := f.semesters.Create(f.ctx, "Summer 2024",
		d(2024, time.June, 1), d(2024, time.September, 1))
	assert.True(t, rank.IsValidation(err))
}

func TestSemesterService_Create_Adjacent_Allowed(t *testing.T) {
	// Starting the day after the previous end is fine.
	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	_, err := f.semesters.Create(f.ctx, "Summer 2024",
		d(2024, time.June, 2), d(2024, time.September, 1))
	assert.NoError(t, err)
}

func TestSemesterService_Create_InvalidWindow_Rejected(t *testing.T) {
	f := newFixture(t)

	// from == to
	_, err := f.semesters.Create(f.ctx, "Degenerate",
		d(2024, time.January, 1), d(2024, time.January, 1))
	assert.True(t, rank.IsValidation(err))

	// from > to
	_, err = f.semesters.Create(f.ctx, "Backwards",
		d(2024, time.June, 1), d(2024, time.January, 1))
	assert.True(t, rank.IsValidation(err))
}

func TestSemesterService_Create_BlankName_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.semesters.Create(f.ctx, "",
		d(2024, time.January, 1), d(2024, time.June, 1))
	assert.True(t, rank.IsValidation(err))
}

func TestSemesterService_Update_ExcludesSelfFromOverlapCheck(t *testing.T) {
	// GIVEN: An existing semester
	// WHEN: Shrinking its own window (which overlaps its current one)
	// THEN: Allowed; a semester never conflicts with itself

	f := newFixture(t)
	sem := f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	updated, err := f.semesters.Update(f.ctx, sem.ID, "Winter 2024",
		d(2024, time.January, 15), d(2024, time.May, 15))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", updated.DateFrom.String())
}

func TestSemesterService_Update_OverlapWithOther_Rejected(t *testing.T) {
	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))
	sem2 := f.addSemester(t, "Summer 2024", d(2024, time.June, 2), d(2024, time.September, 1))

	_, err := f.semesters.Update(f.ctx, sem2.ID, "Summer 2024",
		d(2024, time.May, 1), d(2024, time.September, 1))
	assert.True(t, rank.IsValidation(err))
}

func TestSemesterService_Update_Unknown_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.semesters.Update(f.ctx, "nope", "X",
		d(2024, time.January, 1), d(2024, time.June, 1))
	assert.True(t, rank.IsNotFound(err))
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestSemesterService_FindContaining_ClosedBoundaries(t *testing.T) {
	// Both boundary days belong to the window; the days around do not.
	f := newFixture(t)
	sem := f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	for _, day := range []rank.Date{
		d(2024, time.January, 1),
		d(2024, time.March, 15),
		d(2024, time.June, 1),
	} {
		got, err := f.semesters.FindContaining(f.ctx, day)
		require.NoError(t, err)
		require.NotNil(t, got, "day %s should be contained", day)
		assert.Equal(t, sem.ID, got.ID)
	}

	for _, day := range []rank.Date{
		d(2023, time.December, 31),
		d(2024, time.June, 2),
	} {
		got, err := f.semesters.FindContaining(f.ctx, day)
		require.NoError(t, err)
		assert.Nil(t, got, "day %s is outside the window", day)
	}
}

func TestSemesterService_ListAll_OrderedByDateToDesc(t *testing.T) {
	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))
	f.addSemester(t, "Winter 2025", d(2025, time.January, 1), d(2025, time.June, 1))
	f.addSemester(t, "Summer 2024", d(2024, time.June, 2), d(2024, time.September, 1))

	all, err := f.semesters.ListAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Winter 2025", all[0].Name)
	assert.Equal(t, "Summer 2024", all[1].Name)
	assert.Equal(t, "Winter 2024", all[2].Name)

	latest, err := f.semesters.Latest(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Winter 2025", latest.Name)

	two, err := f.semesters.ListLatestN(f.ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSemesterService_ListLatestN_NonPositive(t *testing.T) {
	// n <= 0 asks for nothing; it must not panic or slice out of range.
	f := newFixture(t)
	f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	for _, n := range []int{0, -1} {
		got, err := f.semesters.ListLatestN(f.ctx, n)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSemesterService_Delete(t *testing.T) {
	f := newFixture(t)
	sem := f.addSemester(t, "Winter 2024", d(2024, time.January, 1), d(2024, time.June, 1))

	deleted, err := f.semesters.Delete(f.ctx, sem.ID)
	require.NoError(t, err)
	assert.Equal(t, sem.ID, deleted.ID)

	_, err = f.semesters.ByID(f.ctx, sem.ID)
	assert.True(t, rank.IsNotFound(err))
}
