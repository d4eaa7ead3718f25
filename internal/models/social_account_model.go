package models

import (
	"time"
)

// Account is one set of destination credentials. Data is stored encrypted and
// only decrypted by the account service.
type Account struct {
	ID        string         `db:"id" json:"id"`
	Website   string         `db:"website" json:"website"`
	Alias     string         `db:"alias" json:"alias"`
	Data      map[string]any `json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`

	// EncryptedData is Data as stored.
	EncryptedData string `db:"data" json:"-"`
}

func (a *Account) String(key string) string {
	if a == nil || a.Data == nil {
		return ""
	}
	s, _ := a.Data[key].(string)
	return s
}

func (a *Account) Time(key string) time.Time {
	t, _ := time.Parse(time.RFC3339, a.String(key))
	return t
}

type LoginStatus struct {
	AccountID string    `json:"account_id"`
	Website   string    `json:"website"`
	LoggedIn  bool      `json:"logged_in"`
	Username  string    `json:"username"`
	CheckedAt time.Time `json:"checked_at"`

	// Data replaces the stored credentials when non-nil (rotated tokens).
	Data map[string]any `json:"-"`
}
