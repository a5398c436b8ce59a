package app

import "fmt"

// DomainError is an error the HTTP layer maps directly to a response:
// Status becomes the HTTP status, Code and Message the JSON body, and
// Details an optional payload (field-level validation info). Workflow code
// returns these for caller mistakes; everything else surfaces as a plain
// error and becomes a 500.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
