package store

import (
	"fmt"
	"time"

	"qwesade/internal/models"
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStoreUnavailable, op, err)
}

func validDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", models.ErrUnparseableDate, date)
	}
	return nil
}
