package collab

import (
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// socketConn adapts a socket.io socket to the hub's Conn interface.
type socketConn struct {
	socket *socketio.Socket
}

func (c *socketConn) ID() string {
	return string(c.socket.Id())
}

func (c *socketConn) Emit(event string, args ...any) error {
	return c.socket.Emit(event, args...)
}

// SetupSocketIO builds the socket.io server and wires its events into the
// hub. The transport owns connection IDs and liveness detection; the hub
// owns rooms, content, and fan-out.
func SetupSocketIO(hub *Hub) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		me := string(socket.Id())
		hub.Connect(&socketConn{socket: socket})
		utils.Log().Printf("socket %v connected\n", me)

		socket.On(EventJoinWorkspace, func(datas ...any) {
			hub.HandleJoin(me, datas...)
		})
		socket.On(EventCodeChange, func(datas ...any) {
			hub.HandleCodeChange(me, datas...)
		})
		socket.On(EventCursorMove, func(datas ...any) {
			hub.HandleCursorMove(me, datas...)
		})
		socket.On(EventLeaveWorkspace, func(datas ...any) {
			hub.HandleLeave(me, datas...)
		})

		socket.On("disconnecting", func(datas ...any) {
			utils.Log().Printf("socket %v disconnecting\n", me)
			hub.Disconnect(me)
		})
		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}
