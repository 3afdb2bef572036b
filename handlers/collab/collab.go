package collab

import (
	"context"
	"fmt"

	"collabsync/core"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// socketEmitter sends frames through socket.io. Every socket is a
// member of the room named after its own ID, which gives targeted
// per-connection delivery.
type socketEmitter struct {
	io *socketio.Server
}

func (e *socketEmitter) Send(connID string, event string, data any) {
	if err := e.io.To(socketio.Room(connID)).Emit(event, data); err != nil {
		logrus.WithFields(logrus.Fields{
			"conn_id": connID,
			"event":   event,
		}).WithError(err).Warn("Failed to emit frame")
	}
}

// SetupSocketIO builds the socket.io server and wires each connection's
// CLIENT_HANDSHAKE, EDIT_DOCUMENT and disconnect events into the hub.
func SetupSocketIO(hub *Hub) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	io := socketio.NewServer(nil, opts)
	hub.BindEmitter(&socketEmitter{io: io})

	io.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		connID := string(socket.Id())
		logrus.WithField("conn_id", connID).Debug("Connection opened")

		socket.On(EventClientHandshake, func(datas ...any) {
			hub.Dispatch(connID, EventClientHandshake, func() error {
				return hub.Handshake(context.Background(), connID, firstArg(datas))
			})
		})
		socket.On(EventEditDocument, func(datas ...any) {
			hub.Dispatch(connID, EventEditDocument, func() error {
				return hub.Edit(connID, firstArg(datas))
			})
		})
		socket.On("disconnect", func(...any) {
			hub.Dispatch(connID, "disconnect", func() error {
				hub.Disconnect(context.Background(), connID)
				return nil
			})
		})
	})
	return io
}

// Dispatch is the per-event recovery boundary. Every failure raised
// while handling an inbound event, structured or not, becomes a
// SERVER_ERROR frame to the originating connection only. No failure is
// broadcast, and none terminates the connection.
func (h *Hub) Dispatch(connID string, event string, handle func() error) {
	defer func() {
		if r := recover(); r != nil {
			pe := core.NewProtocolError(core.ErrorServer, fmt.Sprint(r))
			h.report(connID, event, pe)
		}
	}()
	if err := handle(); err != nil {
		h.report(connID, event, core.AsProtocolError(err))
	}
}

func (h *Hub) report(connID string, event string, pe *core.ProtocolError) {
	protocolErrorsTotal.WithLabelValues(string(pe.Code)).Inc()
	logrus.WithFields(logrus.Fields{
		"conn_id": connID,
		"event":   event,
		"code":    pe.Code,
	}).Warn("Event failed")
	h.emitter.Send(connID, EventServerError, pe)
}

func firstArg(datas []any) any {
	if len(datas) == 0 {
		return nil
	}
	return datas[0]
}
