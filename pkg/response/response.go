// Package response provides the JSON envelope used by every API endpoint:
// {success, message, data?, count?}.
package response

import (
	"github.com/labstack/echo/v4"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// OK writes a success envelope with the given status, message, and data.
func OK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Body{Success: true, Message: message, Data: data})
}

// OKCount writes a success envelope that includes a count alongside the data.
func OKCount(c echo.Context, status int, message string, data interface{}, count int) error {
	return c.JSON(status, Body{Success: true, Message: message, Data: data, Count: &count})
}

// Message writes a success envelope with no data payload.
func Message(c echo.Context, status int, message string) error {
	return c.JSON(status, Body{Success: true, Message: message})
}

// Error writes a failure envelope.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, Body{Success: false, Message: message})
}
