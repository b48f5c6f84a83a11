package models

// Account is a read-only projection of one platform account as observed on an
// inbound event. The same person may hold accounts on several platforms.
type Account struct {
	Platform    string `db:"platform"     json:"platform"`
	ID          string `db:"account_id"   json:"account_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Handle      string `db:"handle"       json:"handle"` // at-handle, may be empty
}
