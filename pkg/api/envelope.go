package api

// Envelope is the JSON wrapper returned by most routes. It is built only
// through OK and Fail so a response can never carry both data and an error.
type Envelope struct {
	Success bool             `json:"success"`
	Data    interface{}      `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Fields  []FieldViolation `json:"fields,omitempty"`
}

// FieldViolation reports a single field-level validation failure.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OK wraps a successful payload.
func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail wraps an error message.
func Fail(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}

// Invalid wraps field-level validation failures.
func Invalid(fields []FieldViolation) Envelope {
	return Envelope{Success: false, Error: "validation failed", Fields: fields}
}
