package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CustomShortcut is a user-defined {name} expansion. Dynamic shortcuts
// substitute their argument for every {$} in Content.
type CustomShortcut struct {
	ID        string    `db:"id" json:"id"`
	Shortcut  string    `db:"shortcut" json:"shortcut"`
	Content   string    `db:"content" json:"content"`
	IsDynamic bool      `db:"is_dynamic" json:"is_dynamic"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Conversions map[string]string

func (c Conversions) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Conversions) Scan(src any) error {
	return scanJSON(src, c)
}

// TagConverter maps one tag to a replacement per website. An empty
// replacement drops the tag for that website.
type TagConverter struct {
	ID          string      `db:"id" json:"id"`
	Tag         string      `db:"tag" json:"tag"`
	Conversions Conversions `db:"conversions" json:"conversions"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
