package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/logutils"
	"github.com/raids-lab/teamspace/pkg/notify"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewWsMgr)
}

const (
	wsReadLimit  = 4096
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bearer token already authenticates the connection; cross-origin
	// browser pages cannot attach it.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// WsMgr upgrades the single event-stream endpoint and parks connections in
// the hub. The server only pushes; inbound frames besides pong are discarded.
type WsMgr struct {
	name string
	hub  *notify.Hub
}

func NewWsMgr(conf *RegisterConfig) Manager {
	return &WsMgr{
		name: "ws",
		hub:  conf.Hub,
	}
}

func (mgr *WsMgr) GetName() string { return mgr.name }

func (mgr *WsMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *WsMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.Connect)
}

func (mgr *WsMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// Connect godoc
// @Summary Open the websocket event stream
// @Description Notifications and channel messages for the authenticated user are pushed here
// @Tags Websocket
// @Security Bearer
// @Success 101 "switching protocols"
// @Router /v1/ws [get]
func (mgr *WsMgr) Connect(c *gin.Context) {
	token := util.GetToken(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		resputil.BadRequestError(c, "Websocket upgrade failed")
		return
	}
	mgr.hub.Register(token.UserID, conn)
	logutils.Log.Debugf("websocket connected for user %d", token.UserID)

	go mgr.readLoop(token.UserID, conn)
	go mgr.pingLoop(conn)
}

// readLoop drains inbound frames so pings and close frames are processed; its
// exit is the single place the connection is unregistered.
func (mgr *WsMgr) readLoop(userID uint, conn *websocket.Conn) {
	defer func() {
		mgr.hub.Unregister(userID, conn)
		_ = conn.Close()
		logutils.Log.Debugf("websocket closed for user %d", userID)
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (mgr *WsMgr) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		deadline := time.Now().Add(10 * time.Second)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}
