package http

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	ErrorType string            `json:"error_type,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"price"`
	Message string                 `json:"message,omitempty" example:"price is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
