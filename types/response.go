package types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// DeleteResponse confirms a destructive operation.
type DeleteResponse struct {
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message,omitempty"`
}

// SessionResponse is returned by POST /v1/session alongside the session cookie.
type SessionResponse struct {
	DeviceID  string `json:"deviceId"`
	ExpiresAt string `json:"expiresAt"`
}
