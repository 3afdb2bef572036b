package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collabsync/core"

	"github.com/sirupsen/logrus"
)

// Emitter delivers one event frame to one connection. The socket.io
// wiring provides the real one; tests substitute a recorder.
type Emitter interface {
	Send(connID string, event string, data any)
}

// Hub owns the three pieces of shared state of the sync core: the
// connection registry (connection -> open-document binding), the
// document registry (document -> authoritative in-memory state), and
// room membership (document -> set of bound connections). All three
// live behind one mutex; handshake seeding and edit apply+broadcast
// are atomic under it, so every edit sees a strictly ordered stream.
type Hub struct {
	mu        sync.Mutex
	bindings  map[string]*core.OpenDocument
	documents map[string]any
	rooms     map[string]map[string]bool

	sessions  core.SessionStore
	snapshots core.SnapshotStore
	reduce    core.Reducer
	emitter   Emitter
}

// NewHub builds a hub around the session store, the snapshot store
// used at eviction time, and the injected edit reducer. BindEmitter
// must be called before the hub handles events.
func NewHub(sessions core.SessionStore, snapshots core.SnapshotStore, reduce core.Reducer) *Hub {
	return &Hub{
		bindings:  make(map[string]*core.OpenDocument),
		documents: make(map[string]any),
		rooms:     make(map[string]map[string]bool),
		sessions:  sessions,
		snapshots: snapshots,
		reduce:    reduce,
	}
}

// BindEmitter attaches the transport the hub sends frames through.
func (h *Hub) BindEmitter(e Emitter) {
	h.emitter = e
}

// Handshake validates a CLIENT_HANDSHAKE payload, authorizes the
// session against its open-document record, binds the connection,
// seeds the document registry on a first writer join, and answers the
// requesting connection with the document's live state.
func (h *Hub) Handshake(ctx context.Context, connID string, payload any) error {
	hs, perr := DecodeHandshake(payload)
	if perr != nil {
		handshakesTotal.WithLabelValues("invalid").Inc()
		return perr
	}

	log := logrus.WithFields(logrus.Fields{
		"conn_id":     connID,
		"session_id":  hs.SessionID,
		"document_id": hs.DocumentID,
	})

	// Out-of-process lookup; other connections' events may interleave
	// before it resolves.
	sess, err := h.sessions.Lookup(ctx, hs.SessionID)
	if err != nil {
		log.WithError(err).Warn("Handshake from unresolved session")
		handshakesTotal.WithLabelValues("not_logged_in").Inc()
		return core.NewProtocolError(core.ErrorNotLoggedIn, hs.SessionID)
	}
	binding := sess.Open(hs.DocumentID)
	if binding == nil {
		log.Warn("Handshake for a document the session never opened")
		handshakesTotal.WithLabelValues("unopened").Inc()
		return core.NewProtocolError(core.ErrorDocumentUnopened, hs.DocumentID)
	}

	var evicted *core.Snapshot

	h.mu.Lock()
	// Unbind-then-bind: a re-handshake for a different document leaves
	// the old room first, so room membership always equals the set of
	// live bindings.
	if prev, ok := h.bindings[connID]; ok && prev.DocumentID != hs.DocumentID {
		evicted = h.leaveRoomLocked(connID, prev.DocumentID)
	}
	h.bindings[connID] = binding

	live, exists := h.documents[hs.DocumentID]
	if !exists {
		// No authoritative copy yet: the client's proposed state is the
		// live state, and a writer's copy seeds the registry. Read-only
		// first joiners do not seed; each supplies its own copy until a
		// writer arrives.
		live = hs.Document
		if binding.Permissions.CanWrite() {
			h.documents[hs.DocumentID] = hs.Document
			openDocuments.Set(float64(len(h.documents)))
		}
	}
	h.emitter.Send(connID, EventServerHandshake, ServerHandshake{Document: live})
	h.joinRoomLocked(connID, hs.DocumentID)
	h.mu.Unlock()

	h.persistSnapshot(ctx, evicted)
	handshakesTotal.WithLabelValues("ok").Inc()
	log.WithField("seeded", !exists && binding.Permissions.CanWrite()).Info("Handshake complete")
	return nil
}

// Edit authorizes an EDIT_DOCUMENT payload against the connection's
// binding, fans it out verbatim to every other room member, and then
// replaces the registry entry with the reducer's output. On any
// failure the registries are left exactly as they were.
func (h *Hub) Edit(connID string, payload any) error {
	edit, perr := DecodeEdit(payload)
	if perr != nil {
		return perr
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	binding, ok := h.bindings[connID]
	if !ok {
		return core.NewProtocolError(core.ErrorDocumentUnopened, "connection has no document bound")
	}
	state, ok := h.documents[binding.DocumentID]
	if !ok {
		return core.NewProtocolError(core.ErrorDocumentUnopened, binding.DocumentID)
	}
	if !binding.Permissions.CanWrite() {
		return core.NewProtocolError(core.ErrorInsufficientPermissions, binding.DocumentID)
	}

	// Broadcast before the registry update; sender excluded.
	for member := range h.rooms[binding.DocumentID] {
		if member == connID {
			continue
		}
		h.emitter.Send(member, EventEditDocument, edit.Raw)
	}
	h.documents[binding.DocumentID] = h.reduce(state, edit.Raw)
	editsTotal.Inc()
	return nil
}

// Disconnect clears the connection's binding and room membership and
// notifies the session store that the document is closed for that
// session. An unbound connection, or one whose session no longer
// resolves, is a no-op — disconnect may race with or follow a failed
// handshake. Other viewers' bindings and the authoritative state (if
// anyone is still in the room) outlive this connection.
func (h *Hub) Disconnect(ctx context.Context, connID string) {
	h.mu.Lock()
	binding, ok := h.bindings[connID]
	h.mu.Unlock()
	if !ok {
		return
	}

	sess, err := h.sessions.Lookup(ctx, binding.SessionID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"conn_id":    connID,
			"session_id": binding.SessionID,
		}).WithError(err).Warn("Disconnect for unresolved session")
		return
	}

	h.mu.Lock()
	// The lookup suspended; a re-handshake may have replaced the binding.
	if cur, ok := h.bindings[connID]; !ok || cur != binding {
		h.mu.Unlock()
		return
	}
	delete(h.bindings, connID)
	evicted := h.leaveRoomLocked(connID, binding.DocumentID)
	h.mu.Unlock()

	h.persistSnapshot(ctx, evicted)

	if err := h.sessions.CloseDocument(ctx, sess, binding.DocumentID); err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id":  binding.SessionID,
			"document_id": binding.DocumentID,
		}).WithError(err).Warn("Failed to close document in session store")
	}
	logrus.WithFields(logrus.Fields{
		"conn_id":     connID,
		"document_id": binding.DocumentID,
	}).Info("Connection disconnected")
}

// ActiveRooms reports current room membership counts.
func (h *Hub) ActiveRooms() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := make(map[string]int, len(h.rooms))
	for id, members := range h.rooms {
		rooms[id] = len(members)
	}
	return rooms
}

// DocumentState returns the registry's current state for a document.
func (h *Hub) DocumentState(documentID string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.documents[documentID]
	return state, ok
}

func (h *Hub) joinRoomLocked(connID, documentID string) {
	members, ok := h.rooms[documentID]
	if !ok {
		members = make(map[string]bool)
		h.rooms[documentID] = members
	}
	members[connID] = true
	boundConnections.Set(float64(len(h.bindings)))
}

// leaveRoomLocked removes the connection from the document's room.
// When the last member leaves, the registry entry is evicted and the
// final state is returned for snapshotting.
func (h *Hub) leaveRoomLocked(connID, documentID string) *core.Snapshot {
	members, ok := h.rooms[documentID]
	if !ok {
		return nil
	}
	delete(members, connID)
	boundConnections.Set(float64(len(h.bindings)))
	if len(members) > 0 {
		return nil
	}
	delete(h.rooms, documentID)
	state, ok := h.documents[documentID]
	if !ok {
		return nil
	}
	delete(h.documents, documentID)
	openDocuments.Set(float64(len(h.documents)))

	data, err := json.Marshal(state)
	if err != nil {
		logrus.WithField("document_id", documentID).WithError(err).Warn("Evicted state is not serializable, skipping snapshot")
		return nil
	}
	return &core.Snapshot{DocumentID: documentID, Data: data, SavedAt: time.Now()}
}

// persistSnapshot writes an eviction snapshot, best effort.
func (h *Hub) persistSnapshot(ctx context.Context, snapshot *core.Snapshot) {
	if snapshot == nil || h.snapshots == nil {
		return
	}
	if err := h.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		logrus.WithField("document_id", snapshot.DocumentID).WithError(err).Warn("Failed to persist eviction snapshot")
		return
	}
	logrus.WithFields(logrus.Fields{
		"document_id": snapshot.DocumentID,
		"data_length": len(snapshot.Data),
	}).Debug("Evicted document snapshotted")
}
