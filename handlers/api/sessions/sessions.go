package sessions

import (
	"encoding/json"
	"net/http"

	"collabsync/core"
	"collabsync/handlers/auth"
	"collabsync/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type (
	CreateSessionResponse struct {
		SessionID string `json:"sessionId"`
		Token     string `json:"token"`
	}

	OpenDocumentRequest struct {
		DocumentID  string          `json:"documentId"`
		Permissions core.Permission `json:"permissions"`
	}
)

// HandleCreate logs a user in: it creates a session record and returns
// its ID together with a bearer token for the session-scoped routes.
func HandleCreate(store core.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := &core.Session{
			ID:        ulid.Make().String(),
			Documents: make(map[string]*core.OpenDocument),
		}
		if err := store.Create(r.Context(), session); err != nil {
			logrus.WithError(err).Error("Failed to create session")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to create session"})
			return
		}

		token, err := auth.CreateJWT(session.ID)
		if err != nil {
			logrus.WithField("session_id", session.ID).WithError(err).Error("Failed to sign session token")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to sign session token"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateSessionResponse{SessionID: session.ID, Token: token})
	}
}

// HandleGet returns the session record the token authenticates.
func HandleGet(store core.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authorizedSession(w, r)
		if !ok {
			return
		}

		session, err := store.Lookup(r.Context(), sessionID)
		if err != nil {
			logrus.WithField("session_id", sessionID).WithError(err).Warn("Failed to look up session")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Session not found"})
			return
		}
		render.JSON(w, r, session)
	}
}

// HandleOpenDocument records that the session opened a document with a
// permission level. Connections handshaking for that session/document
// pair are authorized against this record.
func HandleOpenDocument(store core.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authorizedSession(w, r)
		if !ok {
			return
		}

		var req OpenDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid request body"})
			return
		}
		if req.DocumentID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "documentId is required"})
			return
		}
		if !req.Permissions.Valid() {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "permissions must be read-only or read-write"})
			return
		}

		doc := &core.OpenDocument{
			DocumentID:  req.DocumentID,
			SessionID:   sessionID,
			Permissions: req.Permissions,
		}
		if err := store.OpenDocument(r.Context(), sessionID, doc); err != nil {
			logrus.WithFields(logrus.Fields{
				"session_id":  sessionID,
				"document_id": req.DocumentID,
			}).WithError(err).Error("Failed to open document")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to open document"})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, doc)
	}
}

// authorizedSession checks that the bearer token's subject matches the
// {id} route parameter and returns the session ID.
func authorizedSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "Session claims not found"})
		return "", false
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Session ID is required"})
		return "", false
	}
	if claims.Subject != sessionID {
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, map[string]string{"error": "Token does not match session"})
		return "", false
	}
	return sessionID, true
}
