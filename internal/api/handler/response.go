package handler

import (
	"github.com/labstack/echo/v4"
)

// Envelope wraps every successful response.
type Envelope struct {
	Success bool   `json:"success" example:"true"`
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Success bool     `json:"success" example:"false"`
	Status  string   `json:"status" example:"bad_request"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func sendSuccess(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, Envelope{
		Success: true,
		Status:  "success",
		Message: message,
		Data:    data,
	})
}
