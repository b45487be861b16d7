package model

import (
	"encoding/json"
	"time"
)

// Message is one chat turn in a session. Assistant messages carry the
// citations produced by the query that generated them, stored as JSON for
// portability.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:128;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null;index" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Citations string    `gorm:"type:text" json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CitationList returns the parsed citations; empty on parse error.
func (m *Message) CitationList() []Citation {
	if m.Citations == "" {
		return nil
	}
	var list []Citation
	_ = json.Unmarshal([]byte(m.Citations), &list)
	return list
}

// SetCitations stores the citation list as JSON.
func (m *Message) SetCitations(list []Citation) {
	if len(list) == 0 {
		m.Citations = ""
		return
	}
	b, _ := json.Marshal(list)
	m.Citations = string(b)
}
