package core

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beatroom/beatroom/internal/domain"
)

// fakeConn records every frame delivered to one member.
type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (f *fakeConn) TrySend(data Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrBackpressure
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func newTestRoom(owner domain.UserID) RoomService {
	return NewRoomService(&domain.Room{ID: "r1", OwnerID: owner, CreatedAt: time.Now()})
}

func addMember(t *testing.T, r RoomService, sid SessionID, uid domain.UserID) *fakeConn {
	t.Helper()
	user, err := domain.NewUser(string(uid), "name-"+string(uid))
	if err != nil {
		t.Fatal(err)
	}
	conn := &fakeConn{}
	r.AddMember(sid, NewMemberSession(user, conn))
	return conn
}

func TestAddMemberDerivesOwner(t *testing.T) {
	r := newTestRoom("u1")
	addMember(t, r, "s1", "u1")
	addMember(t, r, "s2", "u2")

	byUser := map[domain.UserID]domain.Collaborator{}
	for _, c := range r.Collaborators() {
		byUser[c.UserID] = c
	}
	if !byUser["u1"].IsOwner {
		t.Error("owner not flagged")
	}
	if byUser["u2"].IsOwner {
		t.Error("non-owner flagged as owner")
	}
	if !byUser["u2"].IsActive {
		t.Error("new collaborator should start active")
	}
}

func TestRemoveMemberReportsRemaining(t *testing.T) {
	r := newTestRoom("u1")
	addMember(t, r, "s1", "u1")
	addMember(t, r, "s2", "u2")

	collab, remaining, ok := r.RemoveMember("s1")
	if !ok || collab.UserID != "u1" || remaining != 1 {
		t.Fatalf("RemoveMember = (%v, %d, %v)", collab, remaining, ok)
	}
	if _, _, ok := r.RemoveMember("s1"); ok {
		t.Error("second remove of the same sid should report false")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := newTestRoom("u1")
	c1 := addMember(t, r, "s1", "u1")
	c2 := addMember(t, r, "s2", "u2")
	c3 := addMember(t, r, "s3", "u3")

	res := r.Broadcast("s1", Frame(`{"type":"pattern:update"}`))
	if res.SentTo != 2 {
		t.Errorf("SentTo = %d", res.SentTo)
	}
	if len(c1.received()) != 0 {
		t.Error("sender received its own broadcast")
	}
	if len(c2.received()) != 1 || len(c3.received()) != 1 {
		t.Error("other members did not receive the broadcast")
	}
}

func TestBroadcastAllIncludesSender(t *testing.T) {
	r := newTestRoom("u1")
	c1 := addMember(t, r, "s1", "u1")
	c2 := addMember(t, r, "s2", "u2")

	res := r.BroadcastAll(Frame(`{"type":"chat:message"}`))
	if res.SentTo != 2 {
		t.Errorf("SentTo = %d", res.SentTo)
	}
	if len(c1.received()) != 1 || len(c2.received()) != 1 {
		t.Error("chat must reach every member including the sender")
	}
}

func TestBroadcastSwallowsPerRecipientFailure(t *testing.T) {
	r := newTestRoom("u1")
	addMember(t, r, "s1", "u1")
	c2 := addMember(t, r, "s2", "u2")
	c2.fail = true
	c3 := addMember(t, r, "s3", "u3")

	res := r.Broadcast("s1", Frame(`{}`))
	if res.SentTo != 1 {
		t.Errorf("SentTo = %d", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "s2" {
		t.Errorf("Dropped = %v", res.Dropped)
	}
	if len(c3.received()) != 1 {
		t.Error("one unreachable member blocked delivery to the rest")
	}
}

func TestReplacePatternIdempotent(t *testing.T) {
	r := newTestRoom("u1")
	p, err := r.CreatePattern([]string{"kick"}, 16, "u1")
	if err != nil {
		t.Fatal(err)
	}
	steps := make([]float64, 16)
	steps[0], steps[4], steps[8], steps[12] = 1, 1, 1, 1
	rows := []domain.TrackSteps{{Track: "kick", Steps: steps}}

	first, err := r.ReplacePattern(p.ID, rows, "u2")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.ReplacePattern(p.ID, rows, "u2")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first.Tracks)
	b, _ := json.Marshal(second.Tracks)
	if string(a) != string(b) {
		t.Error("applying the same steps twice changed stored state")
	}
}

func TestReplacePatternUnknownID(t *testing.T) {
	r := newTestRoom("u1")
	_, err := r.ReplacePattern("nope", nil, "u1")
	if !errors.Is(err, ErrPatternNotFound) {
		t.Errorf("expected ErrPatternNotFound, got %v", err)
	}
}

func TestMergeMixerConcurrentDistinctKeys(t *testing.T) {
	r := newTestRoom("u1")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.MergeMixer(map[string]float64{"volume": 5}, "u1")
	}()
	go func() {
		defer wg.Done()
		r.MergeMixer(map[string]float64{"pan": 0.2}, "u2")
	}()
	wg.Wait()

	state := r.State().MixerState
	if state.Params["volume"] != 5 || state.Params["pan"] != 0.2 {
		t.Errorf("field-level merge lost a key: %v", state.Params)
	}
}

func TestStateCarriesChatLog(t *testing.T) {
	r := newTestRoom("u1")
	r.AppendChat(domain.ChatMessage{SenderID: "u1", Text: "first"})
	r.AppendChat(domain.ChatMessage{SenderID: "u2", Text: "second"})

	msgs := r.State().Messages
	if len(msgs) != 2 || msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Errorf("chat log order lost: %v", msgs)
	}
}

func TestApplySnapshotReplacesWholesale(t *testing.T) {
	r := newTestRoom("u1")
	stale, _ := r.CreatePattern([]string{"kick"}, 16, "u1")
	r.MergeMixer(map[string]float64{"volume": 5}, "u1")

	fresh, _ := domain.NewPattern([]string{"snare"}, 32, "u2", time.Now())
	r.ApplySnapshot(&domain.Snapshot{
		Patterns:   []domain.Pattern{*fresh},
		MixerState: map[string]float64{"reverb": 0.3},
		CreatedBy:  "u2",
	})

	state := r.State()
	if len(state.Patterns) != 1 || state.Patterns[0].ID == stale.ID {
		t.Errorf("old patterns survived the snapshot load: %v", state.Patterns)
	}
	if _, ok := state.MixerState.Params["volume"]; ok {
		t.Error("old mixer keys survived the snapshot load")
	}
	if state.MixerState.Params["reverb"] != 0.3 {
		t.Error("snapshot mixer state missing")
	}
}
