/*
reconcile.go - Aggregate recomputation from ground truth

PURPOSE:
  The authoritative recovery mechanism when the denormalized counters
  drift from the participation set, e.g. after a partial failure between
  the participation write and the aggregate updates. Recomputes both
  totals for every member of a section directly from raw participations
  and overwrites the aggregate rows.

IDEMPOTENCE:
  Running the pass twice with no intervening mutation produces identical
  aggregate values. It never fails on drifted data; only unknown
  section/semester lookups can fail.
*/
package rank

import (
	"context"

	"github.com/tzk/rankup/metrics"
)

// Reconciler rebuilds aggregate rows from the participation set.
type Reconciler struct {
	store  Store
	ledger *Ledger
}

func NewReconciler(store Store, ledger *Ledger) *Reconciler {
	return &Reconciler{store: store, ledger: ledger}
}

// Reconcile recomputes, for every member holding a SectionMember row in
// the section, the all-time total and the given semester's windowed
// total, and overwrites both aggregate rows. Members without a
// per-semester row for the semester keep only their all-time row
// refreshed; BackfillSemester creates missing rows.
func (r *Reconciler) Reconcile(ctx context.Context, sectionID SectionID, semesterID SemesterID) error {
	section, err := r.store.SectionByID(ctx, sectionID)
	if err != nil {
		return err
	}
	if section == nil {
		return &NotFoundError{Kind: "section", Key: string(sectionID)}
	}

	sem, err := r.store.SemesterByID(ctx, semesterID)
	if err != nil {
		return err
	}
	if sem == nil {
		return &NotFoundError{Kind: "semester", Key: string(semesterID)}
	}

	sms, err := r.store.ListSectionMembers(ctx, sectionID)
	if err != nil {
		return err
	}

	for _, sm := range sms {
		all, err := r.ledger.allTimePoints(ctx, sm.MemberID, sectionID)
		if err != nil {
			return err
		}
		sm.PointsAll = all
		if err := r.store.UpsertSectionMember(ctx, sm); err != nil {
			return err
		}

		ss, err := r.store.SectionSemester(ctx, sm.MemberID, sectionID, semesterID)
		if err != nil {
			return err
		}
		if ss == nil {
			continue
		}
		windowed, err := r.ledger.semesterPoints(ctx, sm.MemberID, sectionID, *sem)
		if err != nil {
			return err
		}
		ss.Points = windowed
		if err := r.store.UpsertSectionSemester(ctx, *ss); err != nil {
			return err
		}
	}

	metrics.ReconciliationRuns.Inc()
	return nil
}
