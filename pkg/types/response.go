package types

// SuccessEnvelope wraps every 2xx payload the API returns.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error shape: a stable code, a message safe
// to show, and optional structured details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
