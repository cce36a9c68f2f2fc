// Package model defines the request and response payloads used by the API.
// It keeps transport-level types in one place for reuse.
package model

// ErrorsResponse reports field-level errors of a submitted form.
type ErrorsResponse struct {
	Success  bool              `json:"success"`
	Errors   map[string]string `json:"errors"`
	FormType string            `json:"form_type"`
}

// ErrorResponse reports a request-level failure.
type ErrorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	FormType string `json:"form_type"`
}

// SuccessResponse reports a handled submission.
type SuccessResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FormType string `json:"form_type"`
}

// TokenRequest asks for a form checksum. Values may be any JSON scalar.
type TokenRequest struct {
	Type     any `json:"type"`
	TypeID   any `json:"typeId"`
	FormID   any `json:"formId"`
	FormName any `json:"formName"`
}

// TokenResponse carries an issued form checksum.
type TokenResponse struct {
	Checksum string `json:"checksum"`
}

// ContactRequest is the payload of the standalone contact endpoint.
type ContactRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Subject   string `json:"subject" validate:"max=200"`
	Message   string `json:"message" validate:"required,max=5000"`
}

// APIResponse is the generic reply of the auxiliary endpoints.
type APIResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}
