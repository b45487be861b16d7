package model

import "time"

// Session is a named workspace holding uploaded files and one derived vector
// index. Sessions live entirely in the storage backend; the name doubles as
// the identifier and the storage path segment.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
