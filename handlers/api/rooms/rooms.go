package rooms

import (
	"net/http"

	"github.com/go-chi/render"
)

// RoomLister reports current room membership counts; the collab hub
// implements it.
type RoomLister interface {
	ActiveRooms() map[string]int
}

type Room struct {
	DocumentID string `json:"documentId"`
	Members    int    `json:"members"`
}

// HandleList returns the rooms that currently have members.
func HandleList(hub RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := hub.ActiveRooms()
		rooms := make([]Room, 0, len(active))
		for id, members := range active {
			rooms = append(rooms, Room{DocumentID: id, Members: members})
		}
		render.JSON(w, r, rooms)
	}
}
