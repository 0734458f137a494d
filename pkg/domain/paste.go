package domain

import (
	"time"
)

// PasteEntry is one stored blob plus its metadata. BestBefore is nil for
// pastes that never expire.
type PasteEntry struct {
	Data       []byte     `bson:"data"`
	FileName   string     `bson:"file_name,omitempty"`
	MimeType   string     `bson:"mime_type"`
	BestBefore *time.Time `bson:"best_before,omitempty"`
}

// Expired reports whether the best-before instant has passed. Entries
// without one never expire.
func (p *PasteEntry) Expired(now time.Time) bool {
	return p.BestBefore != nil && now.After(*p.BestBefore)
}
