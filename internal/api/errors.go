package api

import (
	"errors"

	"restaurant-order-service/internal/common"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func respondError(c echo.Context, err error) error {
	var appErr *common.Error
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Msgf("Unhandled error on %s %s", c.Request().Method, c.Path())
		appErr = common.ErrInternal
	}
	status := common.StatusOf(appErr)
	if status >= 500 {
		logger.Error().Err(err).Msgf("%s %s failed", c.Request().Method, c.Path())
	}
	return c.JSON(status, errorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code.Code,
		Details: appErr.Details,
	})
}

// bind decodes and validates the request body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return common.ErrInvalidInput.Wrap(err)
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}
