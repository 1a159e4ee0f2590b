/*
semester.go - Semester interval store

PURPOSE:
  Owns semester records and enforces the non-overlap invariant that the
  whole aggregation model depends on: semester boundaries determine which
  participations count toward which per-semester total, so two semesters
  may never claim the same day.

OVERLAP POLICY:
  Two closed intervals [a1,a2] and [b1,b2] overlap iff a1 <= b2 && b1 <= a2.
  Exact-boundary-adjacent semesters (a2 == b1) are treated as overlapping:
  touching endpoints conflict. The same closed-interval reading applies to
  window containment (Semester.Contains), the threshold query and
  reconciliation, so a boundary-dated event counts exactly once.
*/
package rank

import (
	"context"

	"github.com/google/uuid"
)

// SemesterService validates and stores semesters.
type SemesterService struct {
	repo SemesterRepo
}

func NewSemesterService(repo SemesterRepo) *SemesterService {
	return &SemesterService{repo: repo}
}

// Create adds a semester after validating the name, the ordering
// DateFrom < DateTo, and non-overlap against every existing semester.
func (s *SemesterService) Create(ctx context.Context, name string, from, to Date) (*Semester, error) {
	sem := Semester{
		ID:       SemesterID(uuid.NewString()),
		Name:     name,
		DateFrom: from,
		DateTo:   to,
	}
	if err := s.validate(ctx, sem, ""); err != nil {
		return nil, err
	}
	if err := s.repo.InsertSemester(ctx, sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

// Update replaces name and window of an existing semester, excluding the
// semester itself from the overlap check.
func (s *SemesterService) Update(ctx context.Context, id SemesterID, name string, from, to Date) (*Semester, error) {
	existing, err := s.repo.SemesterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{Kind: "semester", Key: string(id)}
	}

	sem := Semester{ID: id, Name: name, DateFrom: from, DateTo: to}
	if err := s.validate(ctx, sem, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSemester(ctx, sem); err != nil {
		return nil, err
	}
	return &sem, nil
}

func (s *SemesterService) validate(ctx context.Context, sem Semester, exclude SemesterID) error {
	var fields []FieldError
	if sem.Name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "must not be blank"})
	}
	if sem.DateFrom.IsZero() || sem.DateTo.IsZero() {
		fields = append(fields, FieldError{Field: "dateFrom/dateTo", Message: "must be set"})
	} else if !sem.DateFrom.Before(sem.DateTo) {
		fields = append(fields, FieldError{Field: "dateFrom", Message: "must be strictly before dateTo"})
	}
	if len(fields) > 0 {
		return &ValidationError{Reason: "invalid semester", Fields: fields}
	}

	all, err := s.repo.ListSemesters(ctx)
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.ID == exclude {
			continue
		}
		if sem.Overlaps(other) {
			return &ValidationError{
				Reason: "semester window " + sem.Window() + " overlaps " + other.Name + " " + other.Window(),
			}
		}
	}
	return nil
}

// FindContaining returns the semester whose closed window contains d,
// or (nil, nil) when the date falls outside every known semester.
func (s *SemesterService) FindContaining(ctx context.Context, d Date) (*Semester, error) {
	all, err := s.repo.ListSemesters(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Contains(d) {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Current returns the semester containing today, if any.
func (s *SemesterService) Current(ctx context.Context) (*Semester, error) {
	return s.FindContaining(ctx, Today())
}

func (s *SemesterService) ByID(ctx context.Context, id SemesterID) (*Semester, error) {
	sem, err := s.repo.SemesterByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, &NotFoundError{Kind: "semester", Key: string(id)}
	}
	return sem, nil
}

func (s *SemesterService) ByName(ctx context.Context, name string) (*Semester, error) {
	sem, err := s.repo.SemesterByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, &NotFoundError{Kind: "semester", Key: name}
	}
	return sem, nil
}

// ListAll returns all semesters ordered by DateTo descending.
func (s *SemesterService) ListAll(ctx context.Context) ([]Semester, error) {
	return s.repo.ListSemesters(ctx)
}

// ListLatestN returns the n most recent semesters by DateTo.
func (s *SemesterService) ListLatestN(ctx context.Context, n int) ([]Semester, error) {
	if n <= 0 {
		return nil, nil
	}
	all, err := s.repo.ListSemesters(ctx)
	if err != nil {
		return nil, err
	}
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

// Latest returns the semester with the greatest DateTo.
func (s *SemesterService) Latest(ctx context.Context) (*Semester, error) {
	all, err := s.repo.ListSemesters(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func (s *SemesterService) Delete(ctx context.Context, id SemesterID) (*Semester, error) {
	sem, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteSemester(ctx, id); err != nil {
		return nil, err
	}
	return sem, nil
}
