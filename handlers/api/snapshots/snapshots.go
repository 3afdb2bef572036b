package snapshots

import (
	"net/http"

	"collabsync/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HandleList returns the IDs of all documents with a saved snapshot.
func HandleList(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := store.ListSnapshots(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list snapshots")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list snapshots"})
			return
		}
		if ids == nil {
			ids = []string{}
		}
		render.JSON(w, r, ids)
	}
}

// HandleGet returns the last persisted snapshot of a document.
func HandleGet(store core.SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID := chi.URLParam(r, "documentID")
		if documentID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Document ID is required"})
			return
		}

		snapshot, err := store.FindSnapshot(r.Context(), documentID)
		if err != nil {
			logrus.WithField("document_id", documentID).WithError(err).Warn("Failed to get snapshot")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Snapshot not found"})
			return
		}
		render.JSON(w, r, snapshot)
	}
}
