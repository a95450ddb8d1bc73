package api

// MeResponse describes the caller as seen by this service.
type MeResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
	IsStaff bool   `json:"is_staff"`
}
