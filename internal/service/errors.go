package service

import (
	"errors"
	"fmt"

	"portfolioapi/internal/ingest"
	"portfolioapi/internal/repository"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
	ErrIngestion        = ingest.ErrIngestion
)

// storeErr classifies a repository failure. A missing record becomes ErrNotFound,
// anything else ErrStoreUnavailable with the cause kept in the message.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
