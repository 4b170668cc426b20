package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a friend request. A request is
// created pending and deleted on acceptance; "accepted" never persists.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
)

// FriendRequest is one pending entry in the relationship ledger. At most one
// pending request exists per unordered (sender, recipient) pair.
type FriendRequest struct {
	ID          uuid.UUID     `json:"id"`
	SenderID    uuid.UUID     `json:"sender"`
	RecipientID uuid.UUID     `json:"recipient"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ExpandedFriendRequest is a pending request with both parties resolved to
// their public profiles. Requests whose counterparty cannot be resolved are
// dropped server-side rather than returned half-populated.
type ExpandedFriendRequest struct {
	ID        uuid.UUID     `json:"id"`
	Sender    PublicProfile `json:"sender"`
	Recipient PublicProfile `json:"recipient"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}
