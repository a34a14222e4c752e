package ledger

import (
	"context"
	"time"
)

// Reader is the read port the scoring engine pulls from. Implementations
// aggregate in whatever way is cheapest for their backend; the in-memory
// adapter reuses the aggregation helpers in this package, the postgres
// adapter pushes the sums into SQL.
type Reader interface {
	// PSetAggregateForUser returns the clubs/hearts summary over the
	// user's accepted eligible psets, across all of the user's
	// enrollments.
	PSetAggregateForUser(ctx context.Context, userID int64) (PSetAggregate, error)

	// SpadeAggregateForUser returns the spade breakdown for the user.
	// Market guesses count only when closed before now.
	SpadeAggregateForUser(ctx context.Context, userID int64, now time.Time) (SpadeAggregate, error)

	// DifficultyCountsForStudent returns the pset difficulty histogram
	// for one enrollment, counting every pset regardless of status or
	// eligibility. This feeds the insanity rating at level-up time.
	DifficultyCountsForStudent(ctx context.Context, studentID int64) (DifficultyCounts, error)

	// ListPSetsForUser returns the user's accepted eligible psets in
	// upload order, for profile display.
	ListPSetsForUser(ctx context.Context, userID int64) ([]PSet, error)
}
