package models

import "time"

type Settings struct {
	PostRetries            int       `db:"post_retries" json:"post_retries"`
	EmptyQueueOnFailedPost bool      `db:"empty_queue_on_failed_post" json:"empty_queue_on_failed_post"`
	Advertise              bool      `db:"advertise" json:"advertise"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}
