package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beatroom/beatroom/internal/app"
	"github.com/beatroom/beatroom/internal/core"
	"github.com/beatroom/beatroom/internal/domain"
	"github.com/beatroom/beatroom/internal/store"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(data core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) received() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

type harness struct {
	o     *Orchestrator
	store *store.MemoryStore
}

func newHarness() *harness {
	mem := store.NewMemoryStore(store.DefaultTTL)
	return &harness{
		o: &Orchestrator{
			Registry:  app.NewRegistry(),
			Rooms:     app.NewRoomManager(),
			Snapshots: mem,
			Policy:    app.DropPolicy{},
		},
		store: mem,
	}
}

func (h *harness) connect(t *testing.T, sid core.SessionID, uid, name string) *fakeConn {
	t.Helper()
	user, err := domain.NewUser(uid, name)
	if err != nil {
		t.Fatal(err)
	}
	conn := &fakeConn{}
	h.o.Registry.Bind(sid, user, core.NewMemberSession(user, conn), nil)
	return conn
}

func TestJoinUnknownRoomReturnsNotFound(t *testing.T) {
	h := newHarness()
	h.connect(t, "s1", "u1", "ann")
	if _, _, err := h.o.Join("s1", "never-created"); !errors.Is(err, app.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestEventForUnjoinedRoomIsUnauthorized(t *testing.T) {
	h := newHarness()
	h.connect(t, "s1", "u1", "ann")
	h.connect(t, "s2", "u2", "ben")
	state, _, err := h.o.CreateRoom("s1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.o.UpdateMixer("s2", state.Room, map[string]float64{"volume": 1}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("mixer update: expected ErrUnauthorized, got %v", err)
	}
	if _, err := h.o.Chat("s2", state.Room, "hi"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("chat: expected ErrUnauthorized, got %v", err)
	}
	if err := h.o.Authorize("s2", state.Room); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("cursor auth: expected ErrUnauthorized, got %v", err)
	}
}

func TestDisconnectDestroysEmptiedRoom(t *testing.T) {
	h := newHarness()
	h.connect(t, "s1", "u1", "ann")
	state, _, err := h.o.CreateRoom("s1")
	if err != nil {
		t.Fatal(err)
	}

	res := h.o.Disconnect("s1")
	if !res.WasInRoom || !res.Destroyed {
		t.Fatalf("Disconnect = %+v", res)
	}
	if _, ok := h.o.Rooms.GetRoom(state.Room); ok {
		t.Error("room survived its last collaborator")
	}
}

// Full collaborative session: create, join, pattern edit fan-out,
// save and restore.
func TestCollaborationScenario(t *testing.T) {
	h := newHarness()
	c1 := h.connect(t, "s1", "u1", "ann")
	c2 := h.connect(t, "s2", "u2", "ben")

	// u1 creates the room.
	state, _, err := h.o.CreateRoom("s1")
	if err != nil {
		t.Fatal(err)
	}
	roomID := state.Room
	if state.OwnerID != "u1" {
		t.Errorf("owner = %q", state.OwnerID)
	}

	// u2 joins: gets full state listing both collaborators; u1 is told.
	state2, collab2, err := h.o.Join("s2", roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(state2.Collaborators) != 2 {
		t.Errorf("joiner sees %d collaborators", len(state2.Collaborators))
	}
	joinFrame, _ := core.MarshalEvent("collaborator:join", map[string]any{"collaborator": collab2})
	h.o.BroadcastOthers(roomID, "s2", "collaborator:join", joinFrame)
	if n := len(c1.received()); n != 1 {
		t.Fatalf("u1 received %d frames after join broadcast", n)
	}
	if n := len(c2.received()); n != 0 {
		t.Fatalf("join event echoed to the joiner (%d frames)", n)
	}

	// u1 creates and edits a pattern; u2 (and only u2) hears the edit.
	p, err := h.o.CreatePattern("s1", roomID, []string{"kick"}, 16)
	if err != nil {
		t.Fatal(err)
	}
	steps := make([]float64, 16)
	steps[0] = 1
	updated, err := h.o.UpdatePattern("s1", roomID, p.ID, []domain.TrackSteps{{Track: "kick", Steps: steps}})
	if err != nil {
		t.Fatal(err)
	}
	updFrame, _ := core.MarshalEvent("pattern:update", map[string]any{"pattern": updated})
	before1 := len(c1.received())
	h.o.BroadcastOthers(roomID, "s1", "pattern:update", updFrame)
	if len(c1.received()) != before1 {
		t.Error("pattern update echoed to its originator")
	}
	last := c2.received()[len(c2.received())-1]
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(last, &env); err != nil || env.Type != "pattern:update" {
		t.Errorf("u2 last frame type = %q (%v)", env.Type, err)
	}

	// u1 saves; u2 loads; both hear the identical restored snapshot.
	h.o.UpdateMixer("s1", roomID, map[string]float64{"volume": 0.8})
	snapID, err := h.o.Save(context.Background(), "s1", roomID)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := h.o.Load(context.Background(), "s2", roomID, snapID)
	if err != nil {
		t.Fatal(err)
	}
	loadFrame, _ := core.MarshalEvent("session:loaded", map[string]any{"snapshot": snap})
	b1, b2 := len(c1.received()), len(c2.received())
	h.o.BroadcastRoom(roomID, "session:loaded", loadFrame)
	if len(c1.received()) != b1+1 || len(c2.received()) != b2+1 {
		t.Error("snapshot load must reach every collaborator including the requester")
	}
	if string(c1.received()[b1]) != string(c2.received()[b2]) {
		t.Error("collaborators received different restored snapshots")
	}
	if snap.MixerState["volume"] != 0.8 {
		t.Errorf("restored mixer state = %v", snap.MixerState)
	}
}

func TestSaveFailureLeavesRoomUntouched(t *testing.T) {
	h := newHarness()
	h.connect(t, "s1", "u1", "ann")
	state, _, err := h.o.CreateRoom("s1")
	if err != nil {
		t.Fatal(err)
	}
	h.o.Snapshots = failingStore{}
	h.o.UpdateMixer("s1", state.Room, map[string]float64{"volume": 0.5})

	if _, err := h.o.Save(context.Background(), "s1", state.Room); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	room, _ := h.o.Rooms.GetRoom(state.Room)
	if room.State().MixerState.Params["volume"] != 0.5 {
		t.Error("failed save mutated room state")
	}
}

func TestLoadExpiredSnapshotLeavesRoomUnmodified(t *testing.T) {
	h := newHarness()
	h.connect(t, "s1", "u1", "ann")
	state, _, err := h.o.CreateRoom("s1")
	if err != nil {
		t.Fatal(err)
	}
	roomID := state.Room
	h.o.UpdateMixer("s1", roomID, map[string]float64{"volume": 0.5})

	snapID, err := h.o.Save(context.Background(), "s1", roomID)
	if err != nil {
		t.Fatal(err)
	}

	// Push the store clock a week and a second forward.
	h.store.Now = func() time.Time { return time.Now().Add(store.DefaultTTL + time.Second) }
	h.o.UpdateMixer("s1", roomID, map[string]float64{"pan": 0.1})

	if _, err := h.o.Load(context.Background(), "s1", roomID, snapID); !errors.Is(err, store.ErrSnapshotExpired) {
		t.Fatalf("expected ErrSnapshotExpired, got %v", err)
	}
	room, _ := h.o.Rooms.GetRoom(roomID)
	params := room.State().MixerState.Params
	if params["volume"] != 0.5 || params["pan"] != 0.1 {
		t.Error("failed load modified room state")
	}
}

type failingStore struct{}

func (failingStore) Save(context.Context, *domain.Snapshot) (string, error) {
	return "", store.ErrUnavailable
}

func (failingStore) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, store.ErrUnavailable
}

func (failingStore) Close() error { return nil }
