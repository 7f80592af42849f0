package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beatroom/beatroom/internal/domain"
)

type memberEntry struct {
	session MemberSession
	collab  domain.Collaborator
}

// roomImpl is a threadsafe in-memory room. Every mutation commits under the
// room lock before any fan-out; broadcasts take a read lock only.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room

	mu       sync.RWMutex
	members  map[SessionID]*memberEntry
	byUser   map[domain.UserID]SessionID
	patterns map[string]*domain.Pattern
	mixer    domain.MixerState
	messages []domain.ChatMessage
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:     room,
		members:  make(map[SessionID]*memberEntry),
		byUser:   make(map[domain.UserID]SessionID),
		patterns: make(map[string]*domain.Pattern),
		mixer:    domain.NewMixerState(),
	}
}

func (r *roomImpl) ID() domain.RoomID      { return r.room.ID }
func (r *roomImpl) OwnerID() domain.UserID { return r.room.OwnerID }
func (r *roomImpl) CreatedAt() time.Time   { return r.room.CreatedAt }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) HasMember(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[sid]
	return ok
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) domain.Collaborator {
	u := ms.User()
	collab := domain.Collaborator{
		UserID:   u.ID,
		Username: u.Username,
		IsOwner:  u.ID == r.room.OwnerID,
		JoinedAt: time.Now(),
		IsActive: true,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[sid] = &memberEntry{session: ms, collab: collab}
	r.byUser[u.ID] = sid
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).
		Str("sid", string(sid)).Str("user", string(u.ID)).Msg("member added")
	return collab
}

func (r *roomImpl) RemoveMember(sid SessionID) (domain.Collaborator, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.members[sid]
	if !ok {
		return domain.Collaborator{}, len(r.members), false
	}
	delete(r.byUser, e.collab.UserID)
	delete(r.members, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).
		Str("sid", string(sid)).Int("remaining", len(r.members)).Msg("member removed")
	return e.collab, len(r.members), true
}

func (r *roomImpl) SetActive(sid SessionID, active bool) (domain.Collaborator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.members[sid]
	if !ok {
		return domain.Collaborator{}, false
	}
	e.collab.IsActive = active
	return e.collab, true
}

func (r *roomImpl) Collaborators() []domain.Collaborator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collaboratorsLocked()
}

func (r *roomImpl) collaboratorsLocked() []domain.Collaborator {
	out := make([]domain.Collaborator, 0, len(r.members))
	for _, e := range r.members {
		out = append(out, e.collab)
	}
	return out
}

func (r *roomImpl) CreatePattern(tracks []string, resolution int, editor domain.UserID) (domain.Pattern, error) {
	p, err := domain.NewPattern(tracks, resolution, editor, time.Now())
	if err != nil {
		return domain.Pattern{}, err
	}
	r.mu.Lock()
	r.patterns[p.ID] = p
	r.mu.Unlock()
	return p.Clone(), nil
}

func (r *roomImpl) ReplacePattern(patternID string, tracks []domain.TrackSteps, editor domain.UserID) (domain.Pattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patterns[patternID]
	if !ok {
		return domain.Pattern{}, ErrPatternNotFound
	}
	if err := p.ReplaceSteps(tracks, editor, time.Now()); err != nil {
		return domain.Pattern{}, err
	}
	return p.Clone(), nil
}

func (r *roomImpl) Pattern(patternID string) (domain.Pattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patterns[patternID]
	if !ok {
		return domain.Pattern{}, false
	}
	return p.Clone(), true
}

func (r *roomImpl) MergeMixer(partial map[string]float64, editor domain.UserID) domain.MixerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mixer.Apply(partial, editor, time.Now())
	return r.mixer.Clone()
}

func (r *roomImpl) AppendChat(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *roomImpl) ApplySnapshot(snap *domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = make(map[string]*domain.Pattern, len(snap.Patterns))
	for _, p := range snap.Patterns {
		cp := p.Clone()
		r.patterns[cp.ID] = &cp
	}
	r.mixer.Replace(snap.MixerState, snap.CreatedBy, time.Now())
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).
		Int("patterns", len(snap.Patterns)).Msg("snapshot applied")
}

func (r *roomImpl) State() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patterns := make([]domain.Pattern, 0, len(r.patterns))
	for _, p := range r.patterns {
		patterns = append(patterns, p.Clone())
	}
	messages := make([]domain.ChatMessage, len(r.messages))
	copy(messages, r.messages)
	return RoomState{
		Room:          r.room.ID,
		OwnerID:       r.room.OwnerID,
		Collaborators: r.collaboratorsLocked(),
		Patterns:      patterns,
		MixerState:    r.mixer.Clone(),
		Messages:      messages,
	}
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	return r.publish(&from, data)
}

func (r *roomImpl) BroadcastAll(data Frame) PublishResult {
	return r.publish(nil, data)
}

func (r *roomImpl) publish(exclude *SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, e := range r.members {
		if exclude != nil && sid == *exclude {
			continue
		}
		if err := e.session.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
