package repository

import (
	"alcyxob/mindtrack-app/internal/domain"
	"context"
)

// Error constants for the repository layer. ErrNotFound is a normal outcome
// (no remote row yet, it triggers default creation) and must be
// distinguishable from transport failures, which surface as whatever error
// the driver returned.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUnauthorized = RepositoryError("unauthorized")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ProgressRepository is the Remote Store Adapter: CRUD access to the single
// remote collection holding one progress document per owner.
//
// Upsert must be idempotent. It determines whether a document already exists
// for the owner and chooses insert vs. replace accordingly, so a retried call
// never creates a duplicate row. Two sessions racing to create the first row
// are caught by the unique owner index plus the merge on the next sync cycle,
// not by a transaction.
type ProgressRepository interface {
	Fetch(ctx context.Context, ownerID string) (*domain.UserProgress, error)
	Upsert(ctx context.Context, ownerID string, p *domain.UserProgress) error
}
