package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type PartLog struct {
	Part     SubmissionPart `json:"part"`
	Response *PostResponse  `json:"response,omitempty"`
}

type PartLogs []PartLog

func (l PartLogs) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *PartLogs) Scan(src any) error {
	return scanJSON(src, l)
}

// SubmissionLog is the aggregated record of one posting cycle.
type SubmissionLog struct {
	ID           string         `db:"id" json:"id"`
	SubmissionID string         `db:"submission_id" json:"submission_id"`
	Title        string         `db:"title" json:"title"`
	Type         SubmissionType `db:"type" json:"type"`
	Parts        PartLogs       `db:"parts" json:"parts"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
