package service

import (
	"errors"

	"go-mini-commerce/internal/apperr"
	"go-mini-commerce/pkg/validator"

	"gorm.io/gorm"
)

// validationError converts the first field failure into a client error,
// matching the single-message style of the HTTP layer.
func validationError(errs []*validator.ErrorResponse) error {
	first := errs[0]
	return apperr.Newf(apperr.KindValidation,
		"Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
}

// wrapDBErr maps gorm's not-found to the taxonomy and everything else to a
// persistence error.
func wrapDBErr(err error, notFoundDetail string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, notFoundDetail)
	}
	return apperr.Wrap(apperr.KindPersistence, "database operation failed", err)
}
