package transfer

// Wire messages exchanged with the upload endpoint. Requests are JSON sent
// as text/plain so that script-hosted endpoints accept them without a
// CORS preflight.

const (
	ActionGetURL   = "getUrl"
	ActionFinalize = "finalize"

	StatusSuccess = "success"
	StatusError   = "error"

	RequestContentType = "text/plain;charset=utf-8"
)

// Request is the body of both negotiate and finalize calls.
type Request struct {
	Action   string `json:"action"`
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType,omitempty"`
	FileID   string `json:"fileId,omitempty"`
}

// Response is the endpoint's reply to either action.
type Response struct {
	Status        string `json:"status"`
	UploadURL     string `json:"uploadUrl,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	Link          string `json:"link,omitempty"`
	Message       string `json:"message,omitempty"`
}

// StreamReceipt is the optional JSON body returned by the byte sink.
type StreamReceipt struct {
	ID string `json:"id"`
}
