package service

import (
	"context"
)

// enrollmentStore is the subset of the plan transaction used to move membership.
type enrollmentStore interface {
	AddMembership(ctx context.Context, studentID string, courseIDs []string) error
	RemoveMembership(ctx context.Context, studentID string, courseIDs []string) error
	IncrementEnrollment(ctx context.Context, courseID string) error
	DecrementEnrollment(ctx context.Context, courseID string) error
}

// ReconcileResult lists the membership changes that were applied.
type ReconcileResult struct {
	Removed []string
	Added   []string
}

// Changed reports whether any membership row was touched.
func (r ReconcileResult) Changed() bool {
	return len(r.Removed) > 0 || len(r.Added) > 0
}

// Reconcile moves a plan's membership from current to target. Removals are
// applied before additions so a swap can reuse the seats it frees. The first
// failing step aborts; the caller owns the surrounding transaction.
func Reconcile(ctx context.Context, store enrollmentStore, studentID string, current, target []string) (ReconcileResult, error) {
	toRemove, toAdd := DiffMembership(current, target)
	result := ReconcileResult{Removed: toRemove, Added: toAdd}

	if len(toRemove) > 0 {
		if err := store.RemoveMembership(ctx, studentID, toRemove); err != nil {
			return result, err
		}
		for _, id := range toRemove {
			if err := store.DecrementEnrollment(ctx, id); err != nil {
				return result, err
			}
		}
	}

	if len(toAdd) > 0 {
		if err := store.AddMembership(ctx, studentID, toAdd); err != nil {
			return result, err
		}
		for _, id := range toAdd {
			if err := store.IncrementEnrollment(ctx, id); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}
