package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the bilingual error body returned by every JSON endpoint.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	ErrorSv string `json:"errorSv"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// WebhookAck is returned to the payment processor once an event is accepted.
type WebhookAck struct {
	Received bool `json:"received"`
}

// WebhookFailure is returned when a verified event could not be applied.
type WebhookFailure struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
