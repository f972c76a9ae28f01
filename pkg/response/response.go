package response

import "backoffice/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string              `json:"status"`      // "success" or "error"
	StatusCode int                 `json:"status_code"` // HTTP status code
	Data       interface{}         `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"` // field -> messages on 422
	Meta       *Meta               `json:"meta,omitempty"`
}

// Meta describes the window of a paginated list
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps one page of a list together with its meta
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Meta:       &Meta{Page: page, Limit: limit, Total: total, TotalPages: pagination.TotalPages(total, limit)},
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ValidationError returns a 422-style response carrying per-field messages
func ValidationError(statusCode int, fields map[string][]string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      "The given data was invalid.",
		Errors:     fields,
	}
}
