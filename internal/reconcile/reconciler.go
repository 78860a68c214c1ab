// Package reconcile compares a handwritten delivery time with an independently
// recorded reference time.
//
// Times are compared as minutes since midnight. A delivery noted at 23:55 and
// referenced at 00:05 is 1430 minutes apart, not 10: documents are expected to
// come from a single shift and no day rollover is applied.
package reconcile

import "delivery-audit/internal/data"

const DefaultToleranceMinutes = 10

type Outcome string

const (
	OutcomeOk                 Outcome = "Ok"
	OutcomeDiscrepancy        Outcome = "Discrepancy"
	OutcomeHandwrittenMissing Outcome = "HandwrittenMissing"
	OutcomeReferenceMissing   Outcome = "ReferenceMissing"
)

// Status maps the outcome onto the record status of the same name.
func (o Outcome) Status() data.Status {
	return data.Status(o)
}

type Result struct {
	Outcome Outcome
	// DiffMinutes is set only when both times are present.
	DiffMinutes *int
}

type Reconciler struct {
	tolerance int
}

func NewReconciler(toleranceMinutes int) *Reconciler {
	if toleranceMinutes < 0 {
		toleranceMinutes = 0
	}
	return &Reconciler{tolerance: toleranceMinutes}
}

func (r *Reconciler) Tolerance() int {
	return r.tolerance
}

func (r *Reconciler) Reconcile(handwritten, reference *data.TimeValue) Result {
	if handwritten == nil {
		return Result{Outcome: OutcomeHandwrittenMissing}
	}
	if reference == nil {
		return Result{Outcome: OutcomeReferenceMissing}
	}
	diff := handwritten.MinuteOfDay() - reference.MinuteOfDay()
	if diff < 0 {
		diff = -diff
	}
	if diff <= r.tolerance {
		return Result{Outcome: OutcomeOk, DiffMinutes: &diff}
	}
	return Result{Outcome: OutcomeDiscrepancy, DiffMinutes: &diff}
}
