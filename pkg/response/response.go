package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paged wraps one page of a list together with its pagination meta.
func Paged(statusCode int, data interface{}, meta interface{}) Response {
	r := Success(statusCode, data)
	r.Meta = meta
	return r
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// ErrorWithDetails is Error plus structured context, such as the scopes that
// block an export.
func ErrorWithDetails(statusCode int, err string, details interface{}) Response {
	r := Error(statusCode, err)
	r.Details = details
	return r
}
