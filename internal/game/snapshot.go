package game

// PublicState 是對所有玩家一視同仁的盤面快照
type PublicState struct {
	RoomID                string   `json:"roomId"`
	Phase                 Phase    `json:"phase"`
	PlayerCount           int      `json:"playerCount"`
	CurrentKingID         string   `json:"currentKingId,omitempty"`
	CurrentChancellorID   string   `json:"currentChancellorId,omitempty"`
	NominatedChancellorID string   `json:"nominatedChancellorId,omitempty"`
	PreviousKingID        string   `json:"previousKingId,omitempty"`
	PreviousChancellorID  string   `json:"previousChancellorId,omitempty"`
	PlotsCount            int      `json:"plotsCount"`
	EditsCount            int      `json:"editsCount"`
	DeadlockCount         int      `json:"deadlockCount"`
	EliminatedPlayers     []string `json:"eliminatedPlayers"`
	DeckSize              int      `json:"deckSize"`
	DiscardSize           int      `json:"discardSize"`
	IsPaused              bool     `json:"isPaused"`
	PlayerOrder           []string `json:"playerOrder"`
	DisconnectedPlayers   []string `json:"disconnectedPlayers"`
	Settings              Settings `json:"settings"`
	VetoUnlocked          bool     `json:"vetoUnlocked"`
	VetoPending           bool     `json:"vetoPending"`
	WinningFaction        Faction  `json:"winningFaction,omitempty"`
	GameOverReason        string   `json:"gameOverReason,omitempty"`
}

// PlayerState 在公開快照之上加上僅該玩家可見的私有資訊
type PlayerState struct {
	PublicState
	YourRole     Role          `json:"yourRole,omitempty"`
	YourFaction  Faction       `json:"yourFaction,omitempty"`
	IsAlive      bool          `json:"isAlive"`
	KnownPlayers []KnownPlayer `json:"knownPlayers"`
}

// PlayerListEntry 是大廳與盤面共用的玩家名單項目，不含身份
type PlayerListEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"isHost"`
	IsAlive bool   `json:"isAlive"`
}

// FinalRole 供終局時向全員揭示所有身份
type FinalRole struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Role    Role    `json:"role"`
	Faction Faction `json:"faction"`
	IsAlive bool    `json:"isAlive"`
}

// PublicState 產生目前盤面的公開快照
func (g *Game) PublicState() PublicState {
	eliminated := make([]string, 0)
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil && !p.IsAlive {
			eliminated = append(eliminated, id)
		}
	}

	return PublicState{
		RoomID:                g.roomID,
		Phase:                 g.phase,
		PlayerCount:           len(g.players),
		CurrentKingID:         g.currentKingID,
		CurrentChancellorID:   g.currentChancellorID,
		NominatedChancellorID: g.nominatedChancellorID,
		PreviousKingID:        g.previousKingID,
		PreviousChancellorID:  g.previousChancellorID,
		PlotsCount:            g.plotsCount,
		EditsCount:            g.editsCount,
		DeadlockCount:         g.deadlockCount,
		EliminatedPlayers:     eliminated,
		DeckSize:              len(g.deck),
		DiscardSize:           len(g.discardPile),
		IsPaused:              g.isPaused,
		PlayerOrder:           append([]string(nil), g.playerOrder...),
		DisconnectedPlayers:   g.DisconnectedUsernames(),
		Settings:              g.settings,
		VetoUnlocked:          g.vetoUnlocked(),
		VetoPending:           g.vetoPending,
		WinningFaction:        g.winningFaction,
		GameOverReason:        g.gameOverReason,
	}
}

// PlayerState 產生指定玩家視角的快照；玩家不存在時回傳 nil
func (g *Game) PlayerState(playerID string) *PlayerState {
	p := g.players[playerID]
	if p == nil {
		return nil
	}
	return &PlayerState{
		PublicState:  g.PublicState(),
		YourRole:     p.Role,
		YourFaction:  p.Faction,
		IsAlive:      p.IsAlive,
		KnownPlayers: g.KnownPlayers(playerID),
	}
}

// PlayerList 依順位序（未開局時為加入序）列出所有玩家
func (g *Game) PlayerList() []PlayerListEntry {
	list := make([]PlayerListEntry, 0, len(g.players))
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil {
			list = append(list, PlayerListEntry{
				ID:      p.ID,
				Name:    p.Name,
				IsHost:  p.IsHost,
				IsAlive: p.IsAlive,
			})
		}
	}
	return list
}

// FinalRoles 終局時揭示全部身份
func (g *Game) FinalRoles() []FinalRole {
	roles := make([]FinalRole, 0, len(g.players))
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil {
			roles = append(roles, FinalRole{
				ID:      p.ID,
				Name:    p.Name,
				Role:    p.Role,
				Faction: p.Faction,
				IsAlive: p.IsAlive,
			})
		}
	}
	return roles
}
