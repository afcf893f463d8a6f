package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"courtshadows/internal/server/auth"
	"courtshadows/internal/server/store"
)

// Server 聚合 WebSocket 入口、房間索引與帳號儲存
type Server struct {
	registry *Registry
	store    *store.Store
	auth     *auth.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func New(st *store.Store, authMgr *auth.Manager, log zerolog.Logger) *Server {
	return &Server{
		registry: NewRegistry(st, log),
		store:    st,
		auth:     authMgr,
		log:      log.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 前端與伺服器同源部署，跨源由反向代理把關
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// HandleWS 驗證 ?auth= 憑證後升級連線並啟動讀寫迴圈。
// 憑證無效就不升級，讓客戶端走 REST 重新登入。
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("auth")
	username, err := s.auth.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("升級連線失敗")
		return
	}

	c := newClient(s, conn, username)
	s.log.Info().Str("user", username).Str("remote", r.RemoteAddr).Msg("新連線")

	go c.WritePump()
	go c.ReadPump()
}
