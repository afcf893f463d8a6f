package game

// ReconnectResult 回傳重連後的新舊 ID 對應
type ReconnectResult struct {
	PlayerID    string
	OldPlayerID string
	PlayerName  string
	Resumed     bool
}

// PauseForDisconnect 在進行中的對局裡登記一名斷線玩家並暫停。
// 快照以帳號為鍵，重連時據此找回席位；大廳與終局不需暫停。
// 已在暫停中時只追加快照，不重複覆寫 pausedPhase。
func (g *Game) PauseForDisconnect(username, playerID string) bool {
	if g.phase == PhaseLobby || g.phase == PhaseGameOver {
		return false
	}

	if p := g.players[playerID]; p != nil {
		g.disconnected[username] = &disconnectedPlayer{
			oldPlayerID: playerID,
			snapshot:    *p,
		}
	}

	if g.phase != PhasePaused {
		g.isPaused = true
		g.pausedPhase = g.phase
		g.phase = PhasePaused
	}
	return true
}

// CanReconnect 檢查帳號是否有可取回的席位
func (g *Game) CanReconnect(username string) bool {
	_, ok := g.disconnected[username]
	return ok
}

// DisconnectedUsernames 回傳目前斷線中的帳號
func (g *Game) DisconnectedUsernames() []string {
	names := make([]string, 0, len(g.disconnected))
	for username := range g.disconnected {
		names = append(names, username)
	}
	return names
}

// Reconnect 把斷線玩家的席位綁到新連線的 ID 上。
// 舊 ID 在整份狀態中一次換乾淨：players、playerOrder、
// 六個職位欄位、房主與該玩家的未結算投票。全員到齊即自動復賽。
func (g *Game) Reconnect(username, newPlayerID string) (ReconnectResult, error) {
	info, ok := g.disconnected[username]
	if !ok {
		return ReconnectResult{}, validationf("沒有可重連的席位")
	}

	oldID := info.oldPlayerID
	restored := info.snapshot
	restored.ID = newPlayerID

	delete(g.players, oldID)
	g.players[newPlayerID] = &restored

	g.joinRank[newPlayerID] = g.joinRank[oldID]
	delete(g.joinRank, oldID)

	for i, id := range g.playerOrder {
		if id == oldID {
			g.playerOrder[i] = newPlayerID
		}
	}
	if g.currentKingID == oldID {
		g.currentKingID = newPlayerID
	}
	if g.currentChancellorID == oldID {
		g.currentChancellorID = newPlayerID
	}
	if g.previousKingID == oldID {
		g.previousKingID = newPlayerID
	}
	if g.previousChancellorID == oldID {
		g.previousChancellorID = newPlayerID
	}
	if g.nominatedChancellorID == oldID {
		g.nominatedChancellorID = newPlayerID
	}
	if g.hostID == oldID {
		g.hostID = newPlayerID
	}
	if vote, voted := g.votes[oldID]; voted {
		delete(g.votes, oldID)
		g.votes[newPlayerID] = vote
	}

	delete(g.disconnected, username)

	resumed := false
	if len(g.disconnected) == 0 && g.phase == PhasePaused {
		g.resume()
		resumed = true
	}
	return ReconnectResult{
		PlayerID:    newPlayerID,
		OldPlayerID: oldID,
		PlayerName:  restored.Name,
		Resumed:     resumed,
	}, nil
}

func (g *Game) resume() {
	if g.pausedPhase != "" {
		g.phase = g.pausedPhase
		g.pausedPhase = ""
	}
	g.isPaused = false
}

// ForcePause 房主手動暫停進行中的對局
func (g *Game) ForcePause(hostID string) error {
	if hostID != g.hostID {
		return validationf("僅房主可以暫停對局")
	}
	if g.phase == PhaseLobby || g.phase == PhaseGameOver || g.phase == PhasePaused {
		return validationf("目前無法暫停")
	}
	g.isPaused = true
	g.pausedPhase = g.phase
	g.phase = PhasePaused
	return nil
}

// ForceResume 房主不等斷線玩家回來就復賽。
// 斷線玩家標記為陣亡而非移除：席位與身份保留在終局揭示裡，
// 但不再參與輪替與表決。回傳被淘汰者的顯示名稱。
func (g *Game) ForceResume(hostID string) ([]string, error) {
	if hostID != g.hostID {
		return nil, validationf("僅房主可以恢復對局")
	}
	if g.phase != PhasePaused {
		return nil, validationf("對局並未暫停")
	}

	removed := make([]string, 0, len(g.disconnected))
	for _, info := range g.disconnected {
		if p := g.players[info.oldPlayerID]; p != nil {
			p.IsAlive = false
			removed = append(removed, p.Name)
		}
		// 淘汰者的未結算選票一併作廢，否則票數超過存活人數、表決永遠收不齊
		delete(g.votes, info.oldPlayerID)
	}
	g.disconnected = make(map[string]*disconnectedPlayer)

	g.resume()
	return removed, nil
}

// Stop 房主終止對局並把所有人帶回大廳。
// 玩家名單與封鎖名單保留，身份與盤面全數清除。
func (g *Game) Stop(hostID string) error {
	if hostID != g.hostID {
		return validationf("僅房主可以終止對局")
	}
	if g.phase == PhaseLobby {
		return validationf("對局尚未開始")
	}

	for _, p := range g.players {
		p.Role = ""
		p.Faction = ""
		p.IsAlive = true
	}

	g.phase = PhaseLobby
	g.deck = nil
	g.discardPile = nil
	g.plotsCount = 0
	g.editsCount = 0
	g.deadlockCount = 0
	g.currentKingID = ""
	g.currentChancellorID = ""
	g.previousKingID = ""
	g.previousChancellorID = ""
	g.nominatedChancellorID = ""
	g.votes = make(map[string]Vote)
	g.availablePowers = make(map[Power]struct{})
	g.currentDecrees = nil
	g.playerOrder = nil
	g.isPaused = false
	g.pausedPhase = ""
	g.disconnected = make(map[string]*disconnectedPlayer)
	g.vetoPending = false
	g.winningFaction = ""
	g.gameOverReason = ""
	return nil
}
