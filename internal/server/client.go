package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"courtshadows/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64

	// 每秒 20 則、突發 40 則，超過即回報而不處理
	messageRate  = rate.Limit(20)
	messageBurst = 40
)

// Client 是一條已通過身份驗證的 WebSocket 連線。
// username 來自 JWT，整個生命週期不變；playerID 與 room
// 在加入或重連房間時綁定。
type Client struct {
	server  *Server
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	log     zerolog.Logger

	username string

	mu       sync.Mutex
	room     *Room
	playerID string

	closeOnce sync.Once
}

func newClient(server *Server, conn *websocket.Conn, username string) *Client {
	return &Client{
		server:   server,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		limiter:  rate.NewLimiter(messageRate, messageBurst),
		log:      server.log.With().Str("user", username).Logger(),
		username: username,
	}
}

func (c *Client) attach(r *Room, playerID string) {
	c.mu.Lock()
	c.room = r
	c.playerID = playerID
	c.mu.Unlock()
}

// detach 解除房間綁定並斷開連線，由房間在踢人或關閉時呼叫
func (c *Client) detach() {
	c.mu.Lock()
	c.room = nil
	c.playerID = ""
	c.mu.Unlock()
	c.close()
}

func (c *Client) currentRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// enqueue 非阻塞送出；緩衝塞滿代表對端讀不動，直接斷線
func (c *Client) enqueue(raw []byte) {
	select {
	case c.send <- raw:
	default:
		go c.close()
	}
}

func (c *Client) sendMessage(msg serverMessage) {
	c.enqueue(mustMarshal(msg))
}

// ReadPump 讀取並分派訊息，連線斷開時通知所在房間
func (c *Client) ReadPump() {
	defer func() {
		if room := c.currentRoom(); room != nil {
			room.HandleDisconnect(c)
		}
		c.close()
		close(c.send)
		c.log.Debug().Msg("連線關閉")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("連線異常中斷")
			}
			return
		}
		c.handleMessage(raw)
	}
}

// WritePump 把佇列中的訊息寫出並定期送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	if !c.limiter.Allow() {
		c.sendMessage(errMsg("操作過於頻繁，請稍後再試"))
		return
	}

	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendMessage(errMsg("訊息格式錯誤"))
		return
	}

	if err := c.dispatch(&msg); err != nil {
		c.log.Debug().Err(err).Str("type", msg.Type).Msg("操作被拒絕")
		c.sendMessage(errMsg(err.Error()))
	}
}

func (c *Client) dispatch(msg *clientMessage) error {
	switch msg.Type {
	case MsgPing:
		c.sendMessage(serverMessage{Type: MsgPong})
		return nil

	case MsgGetPublicGames:
		c.sendMessage(dataMsg(MsgPublicGamesList, c.server.registry.PublicGames()))
		return nil

	case MsgGetPlayerGames:
		c.sendMessage(dataMsg(MsgPlayerGamesList, c.server.registry.PlayerActiveGames(c.username)))
		return nil

	case MsgJoinGame:
		return c.handleJoin(msg)

	case MsgReconnect:
		return c.handleReconnect()
	}

	// 其餘操作都要求人在房間內
	room := c.currentRoom()
	if room == nil {
		return game.NewValidationError("你不在任何房間內")
	}

	switch msg.Type {
	case MsgStartGame:
		return room.HandleStart(c)
	case MsgUpdateSettings:
		return room.HandleUpdateSettings(c, msg.Settings)
	case MsgNominate:
		return room.HandleNominate(c, msg.ChancellorID)
	case MsgVote:
		return room.HandleVote(c, msg.Vote)
	case MsgDiscardDecree:
		return room.HandleDiscard(c, msg.DiscardedIndex, msg.IsKing)
	case MsgUsePower:
		return room.HandleUsePower(c, msg.Power, msg.TargetID)
	case MsgProposeVeto:
		return room.HandleProposeVeto(c)
	case MsgVetoResponse:
		return room.HandleVetoResponse(c, msg.Accepted)
	case MsgEndTurn:
		return room.HandleEndTurn(c)
	case MsgForcePause:
		return room.HandleForcePause(c)
	case MsgForceResume:
		return room.HandleForceResume(c)
	case MsgStopGame:
		return room.HandleStop(c)
	case MsgKickPlayer:
		return room.HandleKick(c, msg.TargetPlayerID, false)
	case MsgBanPlayer:
		return room.HandleKick(c, msg.TargetPlayerID, true)
	case MsgChatMessage:
		return room.HandleChat(c, msg.Message)
	default:
		return game.NewValidationError("未知的訊息類型")
	}
}

func (c *Client) handleJoin(msg *clientMessage) error {
	if c.currentRoom() != nil {
		return game.NewValidationError("你已經在房間內")
	}

	name := msg.PlayerName
	if name == "" {
		name = c.username
	}
	isPublic := msg.IsPublic == nil || *msg.IsPublic

	room, err := c.server.registry.RoomOrCreate(msg.RoomID, name, msg.Password, isPublic)
	if err != nil {
		return err
	}
	return room.Join(c, name)
}

func (c *Client) handleReconnect() error {
	if c.currentRoom() != nil {
		return game.NewValidationError("你已經在房間內")
	}

	room := c.server.registry.FindPlayerRoom(c.username)
	if room == nil {
		return game.NewValidationError("找不到可重連的對局")
	}
	return room.Reconnect(c)
}
