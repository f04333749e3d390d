package entity

import "time"

// SessionSnapshot is the externally visible state of a signing session
type SessionSnapshot struct {
	ID           string        `json:"id"`
	File         *SelectedFile `json:"file,omitempty"`
	HasSignature bool          `json:"has_signature"`
	Outcome      UploadOutcome `json:"outcome"`
	CreatedAt    time.Time     `json:"created_at"`
}
