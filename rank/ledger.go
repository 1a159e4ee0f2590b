/*
ledger.go - Participation ledger and aggregate orchestration

PURPOSE:
  Central orchestrator for every participation mutation. All writes to
  the two aggregate registries happen only through this component, never
  directly: each create or delete resolves the member, the event, the
  section membership, the containing semester and the semester aggregate,
  then applies the triple write through a single Store.Commit.

FAILURE SEMANTICS (two deliberate code paths):
  Single operations are strict: any missing entity aborts with
  NotFoundError, a duplicate (member, event) pair aborts with
  ConflictError, and no partial aggregate mutation is left behind.
  Batch operations (CreateBulk, DeleteAllForEvent) are best-effort:
  each contained single operation is atomic, but per-item failures are
  skipped and counted, never escalated. Callers get the operations that
  did succeed plus a report of what was skipped.

EVENTS OUTSIDE EVERY SEMESTER:
  An event dated outside all known semesters cannot be scored against a
  semester aggregate; CreateSingle fails with NotFoundError before any
  write, leaving the all-time aggregate untouched as well.

SEE ALSO:
  - store.go: The Commit atomicity contract
  - reconcile.go: Recovery when aggregates drift from ground truth
  - roster: The identifier resolution pipeline feeding CreateBulk
*/
package rank

import (
	"context"

	"github.com/google/uuid"

	"github.com/tzk/rankup/metrics"
)

// IdentifierResolver turns raw uploaded identifiers into members.
// Implemented by the roster package: normalize -> resolve -> deduplicate,
// first occurrence wins, unresolvable identifiers dropped and counted.
type IdentifierResolver interface {
	ResolveMembers(ctx context.Context, raw []string) ([]Member, BulkReport, error)
}

// BulkReport counts the rows a bulk import skipped, by reason.
// Unresolved and DuplicateInput are filled by the resolver,
// AlreadyExists and Failed by the ledger.
type BulkReport struct {
	Unresolved     int `json:"unresolved"`
	DuplicateInput int `json:"duplicateInput"`
	AlreadyExists  int `json:"alreadyExists"`
	Failed         int `json:"failed"`
}

// Skipped returns the total number of skipped rows.
func (r BulkReport) Skipped() int {
	return r.Unresolved + r.DuplicateInput + r.AlreadyExists + r.Failed
}

// Ledger orchestrates participation mutations and threshold queries.
type Ledger struct {
	store     Store
	semesters *SemesterService
	resolver  IdentifierResolver
}

func NewLedger(store Store, semesters *SemesterService, resolver IdentifierResolver) *Ledger {
	return &Ledger{store: store, semesters: semesters, resolver: resolver}
}

// =============================================================================
// SINGLE OPERATIONS - Strict, failure-atomic
// =============================================================================

// CreateSingle records that a member participated in an event of the
// section and credits the event's point value to both aggregates.
func (l *Ledger) CreateSingle(ctx context.Context, sectionID SectionID, memberID MemberID, eventID EventID) (*Participation, error) {
	p, err := l.createResolved(ctx, sectionID, memberID, eventID)
	if err != nil {
		return nil, err
	}
	metrics.ParticipationsCreated.Inc()
	return p, nil
}

func (l *Ledger) createResolved(ctx context.Context, sectionID SectionID, memberID MemberID, eventID EventID) (*Participation, error) {
	member, err := l.store.MemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, &NotFoundError{Kind: "member", Key: string(memberID)}
	}

	event, err := l.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.SectionID != sectionID {
		return nil, &NotFoundError{Kind: "event", Key: string(eventID)}
	}

	existing, err := l.store.ParticipationByEventAndMember(ctx, eventID, memberID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{MemberID: memberID, EventID: eventID, ExistingID: existing.ID}
	}

	sm, err := l.store.SectionMember(ctx, memberID, sectionID)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, &NotFoundError{Kind: "section member", Key: string(memberID) + "/" + string(sectionID)}
	}

	sem, err := l.semesters.FindContaining(ctx, event.Date)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, &NotFoundError{Kind: "semester", Key: event.Date.String()}
	}

	ss, err := l.store.SectionSemester(ctx, memberID, sectionID, sem.ID)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		return nil, &NotFoundError{Kind: "section semester", Key: string(memberID) + "/" + string(sectionID) + "/" + string(sem.ID)}
	}

	p := Participation{
		ID:       ParticipationID(uuid.NewString()),
		MemberID: memberID,
		EventID:  eventID,
	}
	mut := Mutation{
		Op:            OpCreate,
		Participation: p,
		SectionID:     sectionID,
		SemesterID:    sem.ID,
		Points:        event.Points(),
	}
	if err := l.store.Commit(ctx, mut); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteSingle removes a participation and debits the same point value
// from both aggregates, as one atomic unit.
func (l *Ledger) DeleteSingle(ctx context.Context, sectionID SectionID, participationID ParticipationID) (*Participation, error) {
	p, err := l.store.ParticipationByID(ctx, participationID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "participation", Key: string(participationID)}
	}

	event, err := l.store.EventByID(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.SectionID != sectionID {
		return nil, &NotFoundError{Kind: "event", Key: string(p.EventID)}
	}

	sm, err := l.store.SectionMember(ctx, p.MemberID, sectionID)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		return nil, &NotFoundError{Kind: "section member", Key: string(p.MemberID) + "/" + string(sectionID)}
	}

	sem, err := l.semesters.FindContaining(ctx, event.Date)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, &NotFoundError{Kind: "semester", Key: event.Date.String()}
	}

	ss, err := l.store.SectionSemester(ctx, p.MemberID, sectionID, sem.ID)
	if err != nil {
		return nil, err
	}
	if ss == nil {
		return nil, &NotFoundError{Kind: "section semester", Key: string(p.MemberID) + "/" + string(sectionID) + "/" + string(sem.ID)}
	}

	mut := Mutation{
		Op:            OpDelete,
		Participation: *p,
		SectionID:     sectionID,
		SemesterID:    sem.ID,
		Points:        event.Points(),
	}
	if err := l.store.Commit(ctx, mut); err != nil {
		return nil, err
	}
	metrics.ParticipationsDeleted.Inc()
	return p, nil
}

// DeleteByEventAndMember resolves the participation for the pair and
// delegates to DeleteSingle.
func (l *Ledger) DeleteByEventAndMember(ctx context.Context, sectionID SectionID, eventID EventID, memberID MemberID) (*Participation, error) {
	p, err := l.store.ParticipationByEventAndMember(ctx, eventID, memberID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &NotFoundError{Kind: "participation", Key: string(eventID) + "/" + string(memberID)}
	}
	return l.DeleteSingle(ctx, sectionID, p.ID)
}

// =============================================================================
// BATCH OPERATIONS - Best-effort, per-item atomic
// =============================================================================

// DeleteAllForEvent deletes every participation for the event via
// DeleteSingle. Each deletion is its own atomic unit; the batch as a
// whole is not atomic. Returns the participations actually deleted and
// the number of items skipped on failure.
func (l *Ledger) DeleteAllForEvent(ctx context.Context, sectionID SectionID, eventID EventID) ([]Participation, int, error) {
	all, err := l.store.ParticipationsByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}

	var deleted []Participation
	skipped := 0
	for _, p := range all {
		if _, err := l.DeleteSingle(ctx, sectionID, p.ID); err != nil {
			skipped++
			continue
		}
		deleted = append(deleted, p)
	}
	return deleted, skipped, nil
}

// CreateBulk resolves raw uploaded identifiers through the resolver and
// creates one participation per resolved member for the event. Members
// that are unresolvable, duplicated in the input (first occurrence wins)
// or already participating are skipped, not errors; so is any other
// per-member failure. Returns only the participations actually created.
func (l *Ledger) CreateBulk(ctx context.Context, sectionID SectionID, eventID EventID, rawIdentifiers []string) ([]Participation, BulkReport, error) {
	event, err := l.store.EventByID(ctx, eventID)
	if err != nil {
		return nil, BulkReport{}, err
	}
	if event == nil || event.SectionID != sectionID {
		return nil, BulkReport{}, &NotFoundError{Kind: "event", Key: string(eventID)}
	}

	members, report, err := l.resolver.ResolveMembers(ctx, rawIdentifiers)
	if err != nil {
		return nil, report, err
	}

	var created []Participation
	for _, m := range members {
		p, err := l.createResolved(ctx, sectionID, m.ID, eventID)
		switch {
		case err == nil:
			created = append(created, *p)
			metrics.ParticipationsCreated.Inc()
		case IsConflict(err):
			report.AlreadyExists++
			metrics.BulkRowsSkipped.WithLabelValues(metrics.SkipAlreadyExists).Inc()
		default:
			report.Failed++
			metrics.BulkRowsSkipped.WithLabelValues(metrics.SkipFailed).Inc()
		}
	}
	metrics.BulkRowsSkipped.WithLabelValues(metrics.SkipUnresolved).Add(float64(report.Unresolved))
	metrics.BulkRowsSkipped.WithLabelValues(metrics.SkipDuplicateInput).Add(float64(report.DuplicateInput))
	return created, report, nil
}

// =============================================================================
// THRESHOLD QUERY
// =============================================================================

// PassedThreshold returns the members of the section whose point total
// over participations dated within the semester window is >= threshold.
// The sum is recomputed from raw participations rather than trusting the
// cached aggregate, functioning as a live cross-check: with consistent
// aggregates it selects the same member set as a query over
// SectionSemester.Points.
func (l *Ledger) PassedThreshold(ctx context.Context, sectionID SectionID, semesterID SemesterID, threshold int) ([]Member, error) {
	sem, err := l.semesters.ByID(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	sms, err := l.store.ListSectionMembers(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	var passed []Member
	for _, sm := range sms {
		total, err := l.semesterPoints(ctx, sm.MemberID, sectionID, *sem)
		if err != nil {
			return nil, err
		}
		if total < threshold {
			continue
		}
		member, err := l.store.MemberByID(ctx, sm.MemberID)
		if err != nil {
			return nil, err
		}
		if member != nil {
			passed = append(passed, *member)
		}
	}
	return passed, nil
}

// semesterPoints sums event points over the member's participations at
// events of the section dated within the semester's closed window.
func (l *Ledger) semesterPoints(ctx context.Context, memberID MemberID, sectionID SectionID, sem Semester) (int, error) {
	ps, err := l.store.ParticipationsByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range ps {
		event, err := l.store.EventByID(ctx, p.EventID)
		if err != nil {
			return 0, err
		}
		if event == nil || event.SectionID != sectionID {
			continue
		}
		if sem.Contains(event.Date) {
			total += event.Points()
		}
	}
	return total, nil
}

// allTimePoints sums event points over the member's participations at
// events of the section, unwindowed.
func (l *Ledger) allTimePoints(ctx context.Context, memberID MemberID, sectionID SectionID) (int, error) {
	ps, err := l.store.ParticipationsByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range ps {
		event, err := l.store.EventByID(ctx, p.EventID)
		if err != nil {
			return 0, err
		}
		if event != nil && event.SectionID == sectionID {
			total += event.Points()
		}
	}
	return total, nil
}
