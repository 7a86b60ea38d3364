package model

import "time"

// Folder groups documents under a path. Folders are always owned; they
// are not shareable.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Owner     Owner     `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
}
