package entity

// SelectedFile is the document the user picked for signing
type SelectedFile struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
	PageCount int    `json:"page_count,omitempty"`
	Content   []byte `json:"-"`
}

// FileCandidate is a file offered to the selector before validation
type FileCandidate struct {
	Name      string
	MediaType string
	Content   []byte
}

// IsEmpty reports whether the candidate carries no file at all,
// which happens when the user dismisses the file dialog.
func (c FileCandidate) IsEmpty() bool {
	return c.Name == "" && len(c.Content) == 0
}
