package core

import (
	"time"

	"github.com/beatroom/beatroom/internal/domain"
)

// Frame is a marshaled wire message.
type Frame []byte

type SessionID string

// SignalConnection abstracts the messaging transport for one connection.
// Owned by the adapter; the adapter must Close() it. TrySend never blocks.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a user and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	User() *domain.User
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the orchestrator.
// Delivery is best-effort, at-most-once: a dropped recipient misses the
// event until it resyncs by re-joining.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// RoomState is the full state a joiner receives, and the read-only view
// behind session saves. All slices are copies.
type RoomState struct {
	Room          domain.RoomID         `json:"room"`
	OwnerID       domain.UserID         `json:"ownerId"`
	Collaborators []domain.Collaborator `json:"collaborators"`
	Patterns      []domain.Pattern      `json:"patterns"`
	MixerState    domain.MixerState     `json:"mixerState"`
	Messages      []domain.ChatMessage  `json:"messages"`
}

// RoomService is the core-facing API of a room. It owns membership,
// patterns, mixer state and the chat log under one per-room lock, but
// never touches transport resources beyond TrySend.
type RoomService interface {
	ID() domain.RoomID
	OwnerID() domain.UserID
	CreatedAt() time.Time

	MemberCount() int
	HasMember(sid SessionID) bool
	AddMember(sid SessionID, ms MemberSession) domain.Collaborator
	// RemoveMember reports the removed collaborator and the remaining count.
	RemoveMember(sid SessionID) (domain.Collaborator, int, bool)
	SetActive(sid SessionID, active bool) (domain.Collaborator, bool)
	Collaborators() []domain.Collaborator

	CreatePattern(tracks []string, resolution int, editor domain.UserID) (domain.Pattern, error)
	ReplacePattern(patternID string, tracks []domain.TrackSteps, editor domain.UserID) (domain.Pattern, error)
	Pattern(patternID string) (domain.Pattern, bool)

	MergeMixer(partial map[string]float64, editor domain.UserID) domain.MixerState
	AppendChat(msg domain.ChatMessage)
	ApplySnapshot(snap *domain.Snapshot)

	State() RoomState

	// Broadcast delivers to every member except from; BroadcastAll includes
	// the sender. Per-recipient failures are swallowed and reported.
	Broadcast(from SessionID, data Frame) PublishResult
	BroadcastAll(data Frame) PublishResult
}

// RoomInfo is a read-only listing entry for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
	CreatedAt   time.Time     `json:"createdAt"`
}
