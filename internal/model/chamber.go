package model

import "time"

// Chamber is a named group chat scope. Messages and presence are always
// scoped to one chamber. The creator is recorded but not forced into the
// member set; privileged access for the creator is resolved elsewhere.
type Chamber struct {
	ID          string    `json:"id"`
	ChamberName string    `json:"chambername"`
	CreatorID   string    `json:"creator"`
	CreatedAt   time.Time `json:"created"`
}

type ChamberMember struct {
	ChamberID string    `json:"chamber_id"`
	UserID    string    `json:"user_id"`
	AddedAt   time.Time `json:"added_at"`
}
