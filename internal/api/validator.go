package api

import (
	"restaurant-order-service/internal/common"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate reports the failing fields as an ErrInvalidInput.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fields map[string]string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	return common.ErrInvalidInput.WithDetails(fields)
}
