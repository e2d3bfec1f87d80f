package projects

import (
	"encoding/json"
	"time"
)

// record is the persisted shape of a project. The layout document is kept
// opaque: its schema belongs to the generator, not to this store. Legacy
// records written before ownership existed have no owner field.
type record struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Layout json.RawMessage `json:"layout"`
	Owner  string          `json:"owner,omitempty"`
}

// Project is the full read view of a project: the persisted record plus
// the fields derived from storage (modification time, thumbnail presence).
type Project struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Layout       json.RawMessage `json:"layout"`
	Owner        string          `json:"owner,omitempty"`
	Updated      time.Time       `json:"updated"`
	HasThumbnail bool            `json:"has_thumbnail"`
}

// SaveResult reports a create/update/duplicate outcome. ThumbnailErr is
// set when a supplied thumbnail could not be decoded or written; the
// record operation itself still succeeded and the project simply has no
// (new) thumbnail.
type SaveResult struct {
	Project      *Project
	ThumbnailErr error
}

// ListRequest selects and pages the project listing. Page is 1-based.
// When OwnerOnly is set, only projects owned by Owner are returned, and an
// empty Owner is rejected as unauthorized.
type ListRequest struct {
	Page      int
	Limit     int
	Query     string
	Owner     string
	OwnerOnly bool
}

// ListResult carries one page of items plus the size of the whole filtered
// set.
type ListResult struct {
	Items []Project `json:"projects"`
	Total int       `json:"total"`
}
