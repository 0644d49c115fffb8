// internal/domain/segment/repository.go
package segment

import (
	"context"

	"wa-insights-service/internal/domain/customer"
)

// Repository persists and reads segment labels.
type Repository interface {
	SaveResult(ctx context.Context, r *Result) error
	CountBySegment(ctx context.Context) (Stats, error)
	FindCandidates(ctx context.Context, filter customer.SegmentationCandidateFilter) ([]int64, error)
	ListBySegment(ctx context.Context, label Label, limit int) ([]customer.Summary, error)
}
