package domain

import "time"

type RoomID string

// Room is identity meta only. Membership, patterns and mixer state live in
// the core room service; the owner never changes after creation.
type Room struct {
	ID        RoomID    `json:"id"`
	OwnerID   UserID    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Collaborator is a user's participation meta for a room.
// Created on join, removed on leave or disconnect.
type Collaborator struct {
	UserID   UserID    `json:"userId"`
	Username string    `json:"username"`
	IsOwner  bool      `json:"isOwner"`
	JoinedAt time.Time `json:"joinedAt"`
	IsActive bool      `json:"isActive"`
}
