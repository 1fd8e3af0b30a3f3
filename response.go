package authware

// APIResponse is the envelope every auth endpoint answers with.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// OK wraps data in a success envelope.
func OK(data any) APIResponse {
	return APIResponse{Status: statusSuccess, Message: statusSuccess, Data: data}
}

// OKMessage returns a success envelope carrying only a message.
func OKMessage(message string) APIResponse {
	return APIResponse{Status: statusSuccess, Message: message}
}

// NotOK returns a failure envelope with the given message.
func NotOK(message string) APIResponse {
	return APIResponse{Status: statusFailed, Message: message}
}
