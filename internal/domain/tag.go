package domain

// Tag is an admin-managed topic label. Names are unique after slug normalization.
type Tag struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}
