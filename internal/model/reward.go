package model

import "time"

// RewardStatus is the lifecycle state of a reward record. Transitions are
// strictly PENDING -> APPROVED (staff action) -> EARNED (user confirms
// delivery); no other transition is valid and records are never deleted.
type RewardStatus string

const (
	StatusPending  RewardStatus = "PENDING"
	StatusApproved RewardStatus = "APPROVED"
	StatusEarned   RewardStatus = "EARNED"
)

// Reward is one classification submission's reward bookkeeping. Points are
// fixed at creation; only status and station mutate afterwards.
type Reward struct {
	ID        int64        `json:"id"`
	UserEmail string       `json:"user_email"`
	Category  string       `json:"category"`
	Station   *string      `json:"station"`
	Points    int          `json:"points"`
	Status    RewardStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
