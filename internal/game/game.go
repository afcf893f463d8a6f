package game

import (
	"math/rand"
	"sort"
	"time"
)

// Game 表示單一房間的完整可變狀態。
// 本套件不做任何 I/O，也不自行上鎖；同一房間的所有變更
// 必須經由上層（internal/server.Room）序列化後進入。
type Game struct {
	roomID  string
	players map[string]*Player
	phase   Phase

	// 回合角色
	currentKingID         string
	currentChancellorID   string
	nominatedChancellorID string
	previousKingID        string
	previousChancellorID  string

	// 法令牌堆
	deck        []Decree
	discardPile []Decree

	// 進度計數
	plotsCount    int
	editsCount    int
	deadlockCount int

	// 表決
	votes map[string]Vote

	// 行政權力
	availablePowers map[Power]struct{}

	// 立法階段：國王／大法官手上的法令（0～3 張）
	currentDecrees []Decree
	vetoPending    bool

	// 暫停與重連
	isPaused     bool
	pausedPhase  Phase
	disconnected map[string]*disconnectedPlayer

	// 玩家順位：開局時隨機決定，整場不再洗牌
	playerOrder []string

	settings Settings
	hostID   string
	banned   map[string]struct{}

	winningFaction Faction
	gameOverReason string

	joinSeq int
	joinRank map[string]int

	rng *rand.Rand
}

// disconnectedPlayer 保存斷線玩家的完整快照與舊 ID
type disconnectedPlayer struct {
	oldPlayerID string
	snapshot    Player
}

// New 建立一個位於大廳階段的空房間
func New(roomID string, seed int64) *Game {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		roomID:          roomID,
		players:         make(map[string]*Player),
		phase:           PhaseLobby,
		votes:           make(map[string]Vote),
		availablePowers: make(map[Power]struct{}),
		disconnected:    make(map[string]*disconnectedPlayer),
		banned:          make(map[string]struct{}),
		joinRank:        make(map[string]int),
		rng:             rand.New(rand.NewSource(seed)),
	}
}

func (g *Game) RoomID() string { return g.roomID }

func (g *Game) Phase() Phase { return g.phase }

func (g *Game) IsPaused() bool { return g.isPaused }

func (g *Game) HostID() string { return g.hostID }

func (g *Game) CurrentKingID() string { return g.currentKingID }

func (g *Game) CurrentChancellorID() string { return g.currentChancellorID }

func (g *Game) PlotsCount() int { return g.plotsCount }

func (g *Game) EditsCount() int { return g.editsCount }

func (g *Game) DeadlockCount() int { return g.deadlockCount }

func (g *Game) WinningFaction() Faction { return g.winningFaction }

func (g *Game) GameOverReason() string { return g.gameOverReason }

func (g *Game) Settings() Settings { return g.settings }

func (g *Game) PlayerCount() int { return len(g.players) }

// Player 依 ID 取得玩家，可能回傳 nil
func (g *Game) Player(id string) *Player {
	return g.players[id]
}

// HasUsername 檢查帳號是否佔有席位
func (g *Game) HasUsername(username string) bool {
	for _, p := range g.players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// Usernames 回傳所有佔有席位的帳號
func (g *Game) Usernames() []string {
	names := make([]string, 0, len(g.players))
	for _, p := range g.players {
		names = append(names, p.Username)
	}
	return names
}

// CurrentDecrees 回傳立法階段手上法令的副本
func (g *Game) CurrentDecrees() []Decree {
	return append([]Decree(nil), g.currentDecrees...)
}

// === 大廳操作 ===

// UpdateSettings 只允許在大廳階段修改，且僅套用有帶值的欄位
func (g *Game) UpdateSettings(patch SettingsPatch) error {
	if g.phase != PhaseLobby {
		return validationf("對局進行中無法修改設定")
	}
	if patch.ConspiratorsKnowUsurper != nil {
		g.settings.ConspiratorsKnowUsurper = *patch.ConspiratorsKnowUsurper
	}
	if patch.UsurperKnowsAllies != nil {
		g.settings.UsurperKnowsAllies = *patch.UsurperKnowsAllies
	}
	if patch.LimitedConspiratorsKnowledge != nil {
		// 僅 9-10 人局生效，但開關本身隨時可切
		g.settings.LimitedConspiratorsKnowledge = *patch.LimitedConspiratorsKnowledge
	}
	if patch.PreviousKingCannotBeChancellor != nil {
		g.settings.PreviousKingCannotBeChancellor = *patch.PreviousKingCannotBeChancellor
	}
	return nil
}

// AddPlayer 將玩家加入大廳；第一位加入者成為房主
func (g *Game) AddPlayer(playerID, username, name string) error {
	if len(g.players) >= MaxPlayers {
		return capacityf("房間已滿")
	}
	if g.phase != PhaseLobby {
		return validationf("對局已經開始")
	}

	first := len(g.players) == 0
	g.players[playerID] = &Player{
		ID:       playerID,
		Username: username,
		Name:     name,
		IsAlive:  true,
		IsHost:   first,
	}
	g.joinSeq++
	g.joinRank[playerID] = g.joinSeq
	if first {
		g.hostID = playerID
	}
	return nil
}

// RemovePlayer 移除玩家；若房主離開，由最早加入的剩餘玩家接任
func (g *Game) RemovePlayer(playerID string) {
	delete(g.players, playerID)
	delete(g.joinRank, playerID)

	if len(g.players) == 0 {
		return
	}
	for _, p := range g.players {
		if p.IsHost {
			return
		}
	}
	var next *Player
	for _, p := range g.players {
		if next == nil || g.joinRank[p.ID] < g.joinRank[next.ID] {
			next = p
		}
	}
	next.IsHost = true
	g.hostID = next.ID
}

// KickPlayer 房主將玩家踢出大廳
func (g *Game) KickPlayer(hostID, targetID string) (string, error) {
	if g.phase != PhaseLobby {
		return "", validationf("對局進行中無法踢人")
	}
	host := g.players[hostID]
	if host == nil || !host.IsHost {
		return "", validationf("僅房主可以踢人")
	}
	if hostID == targetID {
		return "", validationf("無法踢出自己")
	}
	target := g.players[targetID]
	if target == nil {
		return "", validationf("找不到該玩家")
	}
	name := target.Name
	g.RemovePlayer(targetID)
	return name, nil
}

// BanPlayer 同 KickPlayer，另外將帳號列入封鎖名單（直到房間銷毀）
func (g *Game) BanPlayer(hostID, targetID string) (string, error) {
	if g.phase != PhaseLobby {
		return "", validationf("對局進行中無法封鎖玩家")
	}
	host := g.players[hostID]
	if host == nil || !host.IsHost {
		return "", validationf("僅房主可以封鎖玩家")
	}
	if hostID == targetID {
		return "", validationf("無法封鎖自己")
	}
	target := g.players[targetID]
	if target == nil {
		return "", validationf("找不到該玩家")
	}
	name := target.Name
	g.banned[target.Username] = struct{}{}
	g.RemovePlayer(targetID)
	return name, nil
}

// IsBanned 檢查帳號是否被本房間封鎖
func (g *Game) IsBanned(username string) bool {
	_, ok := g.banned[username]
	return ok
}

// === 開局 ===

// CanStart 檢查人數是否落在 5-10 的範圍
func (g *Game) CanStart() bool {
	n := len(g.players)
	return n >= MinPlayers && n <= MaxPlayers
}

// Start 固定玩家順位、分配身份、建牌堆並隨機選出首任國王，
// 進入 role_reveal 階段。之後呼叫 FinishRoleReveal 進入 nomination。
func (g *Game) Start() error {
	if g.phase != PhaseLobby {
		return validationf("對局已經開始")
	}
	if !g.CanStart() {
		return capacityf("需要 %d 至 %d 名玩家", MinPlayers, MaxPlayers)
	}

	g.playerOrder = g.playerOrder[:0]
	for id := range g.players {
		g.playerOrder = append(g.playerOrder, id)
	}
	// map 迭代順序本身不穩定，先排序再洗牌以確保只受 seed 影響
	sortByJoinRank(g.playerOrder, g.joinRank)
	g.rng.Shuffle(len(g.playerOrder), func(i, j int) {
		g.playerOrder[i], g.playerOrder[j] = g.playerOrder[j], g.playerOrder[i]
	})

	g.assignRoles()
	g.initializeDeck()

	alive := g.alivePlayerIDs()
	g.currentKingID = alive[g.rng.Intn(len(alive))]

	g.phase = PhaseRoleReveal
	return nil
}

// FinishRoleReveal 是 role_reveal→nomination 的延遲轉換掛鉤。
// 延遲純粹為了讓前端展示身份，對規則沒有影響；暫停中或已離開
// role_reveal 時為 no-op。
func (g *Game) FinishRoleReveal() {
	if g.isPaused || g.phase != PhaseRoleReveal {
		return
	}
	g.phase = PhaseNomination
}

// assignRoles 依人數固定配置洗勻後逐一發放
func (g *Game) assignRoles() {
	dist := roleDistribution[len(g.players)]
	roles := make([]Role, 0, len(g.players))
	roles = append(roles, RoleUsurper)
	for i := 0; i < dist.Conspirators; i++ {
		roles = append(roles, RoleConspirator)
	}
	for i := 0; i < dist.Loyalists; i++ {
		roles = append(roles, RoleLoyalist)
	}
	g.rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	for i, id := range g.playerOrder {
		p := g.players[id]
		p.Role = roles[i]
		p.Faction = FactionOf(p.Role)
	}
}

// initializeDeck 建立 11 陰謀 + 6 敕令共 17 張的法令牌堆
func (g *Game) initializeDeck() {
	g.deck = g.deck[:0]
	g.discardPile = g.discardPile[:0]
	for i := 0; i < totalPlots; i++ {
		g.deck = append(g.deck, DecreePlot)
	}
	for i := 0; i < totalEdits; i++ {
		g.deck = append(g.deck, DecreeEdit)
	}
	g.shuffleDeck()
}

func (g *Game) shuffleDeck() {
	g.rng.Shuffle(len(g.deck), func(i, j int) {
		g.deck[i], g.deck[j] = g.deck[j], g.deck[i]
	})
}

// reshuffleDeck 將棄牌堆混回牌堆重新洗勻
func (g *Game) reshuffleDeck() {
	g.deck = append(g.deck, g.discardPile...)
	g.discardPile = g.discardPile[:0]
	g.shuffleDeck()
}

// drawDecree 抽一張牌；牌堆不足時先把棄牌堆洗回來
func (g *Game) drawDecree() (Decree, error) {
	if len(g.deck) == 0 {
		g.reshuffleDeck()
	}
	if len(g.deck) == 0 {
		return "", integrityf("牌堆與棄牌堆皆為空")
	}
	d := g.deck[0]
	g.deck = g.deck[1:]
	return d, nil
}

// === 查詢輔助 ===

// AlivePlayers 回傳順位序（未開局時為加入序）的存活玩家
func (g *Game) AlivePlayers() []*Player {
	result := make([]*Player, 0, len(g.players))
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil && p.IsAlive {
			result = append(result, p)
		}
	}
	return result
}

func (g *Game) alivePlayerIDs() []string {
	ids := make([]string, 0, len(g.players))
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil && p.IsAlive {
			ids = append(ids, id)
		}
	}
	return ids
}

// orderedIDs 開局後依 playerOrder，否則依加入順序
func (g *Game) orderedIDs() []string {
	if len(g.playerOrder) > 0 {
		return g.playerOrder
	}
	ids := make([]string, 0, len(g.players))
	for id := range g.players {
		ids = append(ids, id)
	}
	sortByJoinRank(ids, g.joinRank)
	return ids
}

func sortByJoinRank(ids []string, rank map[string]int) {
	sort.Slice(ids, func(i, j int) bool { return rank[ids[i]] < rank[ids[j]] })
}
