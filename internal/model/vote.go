package model

import "time"

// CanonicalVoteID is the primary key of the single tally row.
const CanonicalVoteID uint = 1

// VoteRecord is the aggregate tally. Only one row is ever created.
type VoteRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	Upvotes        int64     `gorm:"not null;default:0" json:"upvotes"`
	Downvotes      int64     `gorm:"not null;default:0" json:"downvotes"`
	IsVotingActive bool      `gorm:"not null;default:true" json:"isVotingActive"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (VoteRecord) TableName() string { return "votes" }

// DefaultVoteRecord is what a fresh store starts with.
func DefaultVoteRecord() VoteRecord {
	return VoteRecord{ID: CanonicalVoteID, IsVotingActive: true}
}

// VoteField names a counter column.
type VoteField string

const (
	VoteFieldUpvotes   VoteField = "upvotes"
	VoteFieldDownvotes VoteField = "downvotes"
)

func (f VoteField) Valid() bool {
	return f == VoteFieldUpvotes || f == VoteFieldDownvotes
}
