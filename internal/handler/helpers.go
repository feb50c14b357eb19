package handler

import (
	"anoa.com/certhub/pkg/validator"
)

func formatValidationError(err error) string {
	return validator.FormatValidationError(err)
}
