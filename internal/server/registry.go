package server

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"courtshadows/internal/game"
	"courtshadows/internal/server/store"
)

const (
	inactivityTimeout = 30 * time.Minute
	cleanupInterval   = 5 * time.Minute
	roomCodeLength    = 6
)

const roomCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// roomMetadata 是房間在大廳列表裡的描述，與盤面狀態分開維護
type roomMetadata struct {
	roomID       string
	hostName     string
	hostID       string
	isPublic     bool
	password     string
	createdAt    time.Time
	lastActivity time.Time
	playerCount  int
	phase        game.Phase
}

// PublicGameInfo 是公開可加入房間的列表項目
type PublicGameInfo struct {
	RoomID      string `json:"roomId"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	CreatedAt   int64  `json:"createdAt"`
}

// ActiveGameInfo 是玩家可重連的進行中對局列表項目
type ActiveGameInfo struct {
	RoomID       string     `json:"roomId"`
	HostName     string     `json:"hostName"`
	PlayerCount  int        `json:"playerCount"`
	Phase        game.Phase `json:"phase"`
	IsPaused     bool       `json:"isPaused"`
	LastActivity int64      `json:"lastActivity"`
}

// RegistryStats 是全站即時統計
type RegistryStats struct {
	TotalGames   int `json:"totalGames"`
	ActiveGames  int `json:"activeGames"`
	LobbyGames   int `json:"lobbyGames"`
	TotalPlayers int `json:"totalPlayers"`
}

// Registry 管理所有房間的生命週期與大廳索引。
// 房間內部的狀態由各自的 Room 鎖保護，這裡只鎖索引。
type Registry struct {
	mu           sync.Mutex
	rooms        map[string]*Room
	metadata     map[string]*roomMetadata
	playerToRoom map[string]string // 帳號 -> roomID

	store *store.Store
	log   zerolog.Logger
	rng   *rand.Rand
}

func NewRegistry(st *store.Store, log zerolog.Logger) *Registry {
	return &Registry{
		rooms:        make(map[string]*Room),
		metadata:     make(map[string]*roomMetadata),
		playerToRoom: make(map[string]string),
		store:        st,
		log:          log.With().Str("component", "registry").Logger(),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RoomOrCreate 取得既有房間；roomID 為空或不存在時建立新房間。
// 回傳前就完成密碼檢查，讓呼叫端拿到的房間必定可加入索引。
func (r *Registry) RoomOrCreate(roomID, hostName, password string, isPublic bool) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roomID == "" {
		roomID = r.newRoomCodeLocked()
	}

	if room, ok := r.rooms[roomID]; ok {
		meta := r.metadata[roomID]
		if !meta.isPublic && meta.password != password {
			return nil, game.NewValidationError("房間密碼錯誤")
		}
		return room, nil
	}

	room := newRoom(roomID, r)
	r.rooms[roomID] = room
	r.metadata[roomID] = &roomMetadata{
		roomID:       roomID,
		hostName:     hostName,
		isPublic:     isPublic,
		password:     password,
		createdAt:    time.Now(),
		lastActivity: time.Now(),
	}
	r.log.Info().Str("room", roomID).Str("host", hostName).Bool("public", isPublic).Msg("建立房間")
	return room, nil
}

func (r *Registry) newRoomCodeLocked() string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeCharset[r.rng.Intn(len(roomCodeCharset))]
		}
		if _, taken := r.rooms[string(code)]; !taken {
			return string(code)
		}
	}
}

// Room 依 ID 取得房間，可能回傳 nil
func (r *Registry) Room(roomID string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[roomID]
}

// RegisterPlayer 記錄帳號目前所在的房間，供跨連線重連時尋回
func (r *Registry) RegisterPlayer(username, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playerToRoom[username] = roomID
}

func (r *Registry) UnregisterPlayer(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.playerToRoom, username)
}

// FindPlayerRoom 尋找帳號所在的房間
func (r *Registry) FindPlayerRoom(username string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.playerToRoom[username]
	if !ok {
		return nil
	}
	return r.rooms[roomID]
}

// UpdateMetadata 把房間的即時狀態同步進大廳索引，順便刷新閒置計時
func (r *Registry) UpdateMetadata(roomID string, playerCount int, phase game.Phase, hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meta, ok := r.metadata[roomID]; ok {
		meta.playerCount = playerCount
		meta.phase = phase
		meta.hostID = hostID
		meta.lastActivity = time.Now()
	}
}

// DeleteRoom 移除房間與其所有索引
func (r *Registry) DeleteRoom(roomID string, usernames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, username := range usernames {
		if r.playerToRoom[username] == roomID {
			delete(r.playerToRoom, username)
		}
	}
	delete(r.rooms, roomID)
	delete(r.metadata, roomID)
	r.log.Info().Str("room", roomID).Msg("移除房間")
}

// PublicGames 列出公開且仍在大廳的房間，新建立的在前
func (r *Registry) PublicGames() []PublicGameInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	games := make([]PublicGameInfo, 0)
	for _, meta := range r.metadata {
		if meta.isPublic && meta.phase == game.PhaseLobby {
			games = append(games, PublicGameInfo{
				RoomID:      meta.roomID,
				HostName:    meta.hostName,
				PlayerCount: meta.playerCount,
				MaxPlayers:  game.MaxPlayers,
				CreatedAt:   meta.createdAt.UnixMilli(),
			})
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt > games[j].CreatedAt })
	return games
}

// PlayerActiveGames 列出帳號參與中的對局（非大廳、非終局），最近活動在前
func (r *Registry) PlayerActiveGames(username string) []ActiveGameInfo {
	r.mu.Lock()
	rooms := make(map[string]*Room, len(r.rooms))
	metas := make(map[string]*roomMetadata, len(r.metadata))
	for id, room := range r.rooms {
		rooms[id] = room
		metas[id] = r.metadata[id]
	}
	r.mu.Unlock()

	games := make([]ActiveGameInfo, 0)
	for id, room := range rooms {
		if !room.HasPlayer(username) {
			continue
		}
		meta := metas[id]
		if meta == nil || !meta.phase.InProgress() {
			continue
		}
		games = append(games, ActiveGameInfo{
			RoomID:       id,
			HostName:     meta.hostName,
			PlayerCount:  meta.playerCount,
			Phase:        meta.phase,
			IsPaused:     meta.phase == game.PhasePaused,
			LastActivity: meta.lastActivity.UnixMilli(),
		})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].LastActivity > games[j].LastActivity })
	return games
}

// Stats 彙整全站即時統計
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := RegistryStats{TotalGames: len(r.rooms)}
	for _, meta := range r.metadata {
		switch {
		case meta.phase == game.PhaseLobby:
			stats.LobbyGames++
		case meta.phase != game.PhaseGameOver:
			stats.ActiveGames++
		}
		stats.TotalPlayers += meta.playerCount
	}
	return stats
}

// RunCleanup 定期關閉閒置超過 30 分鐘的房間，直到 ctx 結束
func (r *Registry) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanupInactive()
		}
	}
}

func (r *Registry) cleanupInactive() {
	now := time.Now()

	// 在索引鎖外關房間，避免與房間鎖交錯
	r.mu.Lock()
	stale := make([]*Room, 0)
	for id, meta := range r.metadata {
		if now.Sub(meta.lastActivity) > inactivityTimeout {
			stale = append(stale, r.rooms[id])
		}
	}
	r.mu.Unlock()

	for _, room := range stale {
		if room == nil {
			continue
		}
		r.log.Info().Str("room", room.id).Msg("關閉閒置房間")
		room.Shutdown("房間因閒置過久而關閉")
	}
}
