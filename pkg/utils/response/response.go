// Package response contains response utility functions and types
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error types reported in Response.ErrorType
const (
	InputException    = "InputException"
	DataNotFound      = "DataNotFound"
	UpstreamException = "UpstreamException"
	MalformedDocument = "MalformedDocument"
	DatabaseException = "DatabaseException"
	ServerException   = "ServerException"
)

// Response represents the standard API response structure
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// SuccessResponse sends a successful JSON response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error JSON response
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Response{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}

// InputError sends a 400 with the InputException type
func InputError(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, InputException, message)
}

// NotFound sends a 404 with the DataNotFound type
func NotFound(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, DataNotFound, message)
}
