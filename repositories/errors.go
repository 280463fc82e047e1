package repositories

import (
	"errors"
	"fmt"

	"telemetry-server/apperr"

	"gorm.io/gorm"
)

// translate turns a missing row into a NotFound error and wraps anything
// else with the operation name.
func translate(err error, op string, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", what)
	}
	return fmt.Errorf("%s: %w", op, err)
}
