package domain

// CreatePasteRequest is the body of POST /. ExpiresAt is an RFC3339
// timestamp; when omitted the server applies DefaultTTL.
type CreatePasteRequest struct {
	Content   string  `json:"content"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

type CreatePasteResponse struct {
	UUID string `json:"uuid"`
}

type GetPasteResponse struct {
	Content string `json:"content"`
}

type CleanResponse struct {
	Deleted int `json:"deleted"`
}
