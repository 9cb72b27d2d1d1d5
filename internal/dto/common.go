package dto

// Envelope is the shared JSON response shape.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// OKMessage wraps data with a message.
func OKMessage(message string, data interface{}) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// Fail builds a failure envelope.
func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}

// Paginated is a list payload with paging metadata.
type Paginated struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Success     bool   `json:"success"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	DB          string `json:"db"`
}
