package models

import "time"

// PosterStatus is the live view of one destination while a submission posts.
type PosterStatus struct {
	PartID               string     `json:"part_id"`
	Website              string     `json:"website"`
	AccountID            string     `json:"account_id"`
	PostAt               time.Time  `json:"post_at"`
	Status               PostStatus `json:"status"`
	IsReady              bool       `json:"is_ready"`
	IsPosting            bool       `json:"is_posting"`
	IsDone               bool       `json:"is_done"`
	WaitForExternalStart bool       `json:"wait_for_external_start"`
	Sources              []string   `json:"sources"`
	Source               string     `json:"source,omitempty"`
	Error                string     `json:"error,omitempty"`
}

type PostInfo struct {
	Submission *Submission    `json:"submission"`
	Posters    []PosterStatus `json:"posters"`
}

type PostingState struct {
	Queued  []*Submission `json:"queued"`
	Posting []PostInfo    `json:"posting"`
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationWarning NotificationKind = "warning"
)

type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Time    time.Time        `json:"time"`
}
