package entity

import "time"

// SignatureArtifact is a finalized snapshot of the signature surface
type SignatureArtifact struct {
	DataURL   string    `json:"data_url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// PointerEventType enumerates the pointer gestures accepted by the signature pad
type PointerEventType string

const (
	PointerDown  PointerEventType = "down"
	PointerMove  PointerEventType = "move"
	PointerUp    PointerEventType = "up"
	PointerLeave PointerEventType = "leave"
)

// PointerEvent is a single pointer sample in surface-relative coordinates
type PointerEvent struct {
	Type PointerEventType `json:"type"`
	X    float64          `json:"x"`
	Y    float64          `json:"y"`
}
