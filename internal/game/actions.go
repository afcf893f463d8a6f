package game

// VoteOutcome 描述一次表決結算的完整結果
type VoteOutcome struct {
	Yes        int    `json:"yes"`
	No         int    `json:"no"`
	Passed     bool   `json:"passed"`
	GameOver   bool   `json:"gameOver"`
	AutoPassed Decree `json:"autoPass,omitempty"`
	HasPower   bool   `json:"hasPower,omitempty"`
}

// VoteDetail 供結算後公開每位玩家的投票內容
type VoteDetail struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Vote       Vote   `json:"vote"`
}

// VetoOutcome 描述國王對否決提案的回應結果
type VetoOutcome struct {
	Accepted   bool   `json:"accepted"`
	Deadlock   bool   `json:"deadlock"`
	AutoPassed Decree `json:"autoPassedDecree,omitempty"`
}

// PowerResult 依權力種類填入對應欄位
type PowerResult struct {
	Power            Power    `json:"power"`
	TargetID         string   `json:"targetId,omitempty"`
	TargetName       string   `json:"targetName,omitempty"`
	Faction          Faction  `json:"faction,omitempty"`
	Cards            []Decree `json:"cards,omitempty"`
	DesignatedKingID string   `json:"designatedKingId,omitempty"`
	ExecutedID       string   `json:"executedId,omitempty"`
	WasUsurper       bool     `json:"wasUsurper"`
	GameOver         bool     `json:"gameOver"`
}

// === 提名 ===

// NominateChancellor 由現任國王提名大法官。
// 上一任大法官不可被提名；若設定開啟，上一任國王亦不可。
// 提名會清空上一輪的表決並進入 council_vote。
func (g *Game) NominateChancellor(kingID, targetID string) error {
	if g.phase != PhaseNomination {
		return validationf("現在不是提名大法官的時機")
	}
	if kingID != g.currentKingID {
		return validationf("你不是國王")
	}
	target := g.players[targetID]
	if target == nil || !target.IsAlive {
		return validationf("無效的提名對象")
	}
	if targetID == g.previousChancellorID {
		return validationf("該玩家暫時不具被提名資格")
	}
	if g.settings.PreviousKingCannotBeChancellor && targetID == g.previousKingID {
		return validationf("上一任國王不可被提名為大法官")
	}

	g.nominatedChancellorID = targetID
	g.votes = make(map[string]Vote)
	g.phase = PhaseCouncilVote
	return nil
}

// === 表決 ===

// CastVote 登記一票，回傳是否所有存活玩家都已投票。
// 結算由呼叫端偵測「票已到齊」後觸發 ResolveVote。
func (g *Game) CastVote(playerID string, vote Vote) (bool, error) {
	if g.phase != PhaseCouncilVote {
		return false, validationf("現在不是投票的時機")
	}
	p := g.players[playerID]
	if p == nil || !p.IsAlive {
		return false, validationf("你無法投票")
	}
	if vote != VoteYes && vote != VoteNo {
		return false, validationf("無效的投票選項")
	}
	g.votes[playerID] = vote
	return len(g.votes) == len(g.AlivePlayers()), nil
}

// BallotComplete 回報表決是否已收齊所有存活玩家的票。
// 表決中途有人被淘汰（例如強制復賽）時，收齊與否要重新檢視。
func (g *Game) BallotComplete() bool {
	alive := g.AlivePlayers()
	return g.phase == PhaseCouncilVote && len(alive) > 0 && len(g.votes) == len(alive)
}

// VoteDetails 回傳順位序的投票明細
func (g *Game) VoteDetails() []VoteDetail {
	details := make([]VoteDetail, 0, len(g.votes))
	for _, id := range g.orderedIDs() {
		vote, ok := g.votes[id]
		if !ok {
			continue
		}
		if p := g.players[id]; p != nil {
			details = append(details, VoteDetail{PlayerID: id, PlayerName: p.Name, Vote: vote})
		}
	}
	return details
}

// VotedPlayerIDs 回傳已投票的玩家 ID
func (g *Game) VotedPlayerIDs() []string {
	ids := make([]string, 0, len(g.votes))
	for _, id := range g.orderedIDs() {
		if _, ok := g.votes[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ResolveVote 結算表決。過半同意即通過：設定大法官、歸零僵局計數，
// 並在陰謀數達門檻且當選者為篡位者時直接判陰謀派勝。
// 否決時累積僵局；第三次連續僵局自動通過牌堆頂的法令
// （此處不輪替國王——輪替留給後續的 EndTurn，勝負判定必須先行）。
func (g *Game) ResolveVote() (VoteOutcome, error) {
	if g.phase != PhaseCouncilVote {
		return VoteOutcome{}, validationf("目前沒有進行中的表決")
	}

	outcome := VoteOutcome{}
	for _, v := range g.votes {
		if v == VoteYes {
			outcome.Yes++
		} else {
			outcome.No++
		}
	}
	outcome.Passed = outcome.Yes > outcome.No

	if outcome.Passed {
		g.currentChancellorID = g.nominatedChancellorID
		g.deadlockCount = 0

		if g.plotsCount >= usurperRevealThreshold {
			chancellor := g.players[g.currentChancellorID]
			if chancellor != nil && chancellor.Role == RoleUsurper {
				g.endGame(FactionConspirators, "篡位者登上大法官之位！")
				outcome.GameOver = true
				return outcome, nil
			}
		}

		g.phase = PhaseLegislative
		return outcome, nil
	}

	g.deadlockCount++
	if g.deadlockCount >= maxConsecutiveDeadlock {
		decree, err := g.drawDecree()
		if err != nil {
			return outcome, err
		}
		g.passDecree(decree)
		g.deadlockCount = 0
		outcome.AutoPassed = decree
		outcome.GameOver = g.phase == PhaseGameOver
		outcome.HasPower = g.phase == PhaseExecutivePower
		return outcome, nil
	}

	g.rotateKing()
	g.phase = PhaseNomination
	return outcome, nil
}

// === 立法階段 ===

// KingDrawDecrees 國王抽三張法令；牌堆不足時先洗回棄牌堆
func (g *Game) KingDrawDecrees() ([]Decree, error) {
	if g.phase != PhaseLegislative {
		return nil, validationf("現在不是立法階段")
	}
	if len(g.currentDecrees) != 0 {
		return nil, integrityf("法令已經抽出")
	}
	if len(g.deck) < 3 {
		g.reshuffleDeck()
	}
	if len(g.deck) < 3 {
		return nil, integrityf("牌堆不足以抽出三張法令")
	}
	g.currentDecrees = append(g.currentDecrees, g.deck[0], g.deck[1], g.deck[2])
	g.deck = g.deck[3:]
	return g.CurrentDecrees(), nil
}

// KingDiscardDecree 國王棄掉三張中的一張，剩餘兩張交給大法官
func (g *Game) KingDiscardDecree(kingID string, index int) ([]Decree, error) {
	if kingID != g.currentKingID {
		return nil, validationf("你不是國王")
	}
	if len(g.currentDecrees) != 3 {
		return nil, integrityf("手牌數量不正確")
	}
	if index < 0 || index >= len(g.currentDecrees) {
		return nil, validationf("無效的棄牌索引")
	}
	g.discardPile = append(g.discardPile, g.currentDecrees[index])
	g.currentDecrees = append(g.currentDecrees[:index], g.currentDecrees[index+1:]...)
	return g.CurrentDecrees(), nil
}

// ChancellorDiscardDecree 大法官棄掉兩張中的一張，剩下的那張即告通過
func (g *Game) ChancellorDiscardDecree(chancellorID string, index int) (Decree, error) {
	if chancellorID != g.currentChancellorID {
		return "", validationf("你不是大法官")
	}
	if len(g.currentDecrees) != 2 {
		return "", integrityf("手牌數量不正確")
	}
	if index < 0 || index >= len(g.currentDecrees) {
		return "", validationf("無效的棄牌索引")
	}
	g.discardPile = append(g.discardPile, g.currentDecrees[index])
	g.currentDecrees = append(g.currentDecrees[:index], g.currentDecrees[index+1:]...)

	passed := g.currentDecrees[0]
	g.currentDecrees = g.currentDecrees[:0]
	g.passDecree(passed)
	return passed, nil
}

// === 否決 ===

// vetoUnlocked 在第五項陰謀通過後解鎖
func (g *Game) vetoUnlocked() bool {
	return g.plotsCount >= 5
}

// ProposeVeto 大法官在持有兩張法令時提出否決
func (g *Game) ProposeVeto(chancellorID string) error {
	if chancellorID != g.currentChancellorID {
		return validationf("你不是大法官")
	}
	if !g.vetoUnlocked() {
		return validationf("否決權尚未解鎖")
	}
	if len(g.currentDecrees) != 2 {
		return integrityf("手牌數量不正確")
	}
	g.vetoPending = true
	return nil
}

// RespondToVeto 國王回應否決。同意時兩張法令全數棄掉，
// 視同一次失敗的表決累積僵局（可能因此觸發第三次僵局的自動通過，
// 自動通過一樣先於任何國王輪替）；拒絕時交還大法官照常棄牌。
func (g *Game) RespondToVeto(kingID string, accepted bool) (VetoOutcome, error) {
	if kingID != g.currentKingID {
		return VetoOutcome{}, validationf("你不是國王")
	}
	if !g.vetoPending {
		return VetoOutcome{}, validationf("目前沒有待回應的否決")
	}

	g.vetoPending = false
	if !accepted {
		return VetoOutcome{Accepted: false}, nil
	}

	g.discardPile = append(g.discardPile, g.currentDecrees...)
	g.currentDecrees = g.currentDecrees[:0]
	g.deadlockCount++

	if g.deadlockCount >= maxConsecutiveDeadlock {
		decree, err := g.drawDecree()
		if err != nil {
			return VetoOutcome{Accepted: true}, err
		}
		g.passDecree(decree)
		g.deadlockCount = 0
		return VetoOutcome{Accepted: true, Deadlock: true, AutoPassed: decree}, nil
	}

	g.advanceTurn()
	return VetoOutcome{Accepted: true}, nil
}

// === 法令結算 ===

// passDecree 將法令永久計入進度並判定勝負；未分勝負時
// 重新計算可用權力，有權力則進入 executive_power，否則進入辯論
func (g *Game) passDecree(decree Decree) {
	if decree == DecreePlot {
		g.plotsCount++
		g.updateAvailablePowers()

		if g.plotsCount >= plotsToWin {
			g.endGame(FactionConspirators, "六項陰謀法令已通過！")
			return
		}
		if len(g.availablePowers) > 0 {
			g.phase = PhaseExecutivePower
		} else {
			g.phase = PhaseDebate
		}
		return
	}

	g.editsCount++
	if g.editsCount >= editsToWin {
		g.endGame(FactionLoyalists, "五項王室敕令已通過！")
		return
	}
	g.phase = PhaseDebate
}

// updateAvailablePowers 是 (玩家數, 陰謀數) 的純函式，對應固定盤面：
//
//	5-6 人：陰謀 3 → 窺探；4-5 → 處決
//	7-8 人：陰謀 2 → 調查；3 → 指定繼任；4-5 → 處決
//	9-10 人：陰謀 1-2 → 調查；3 → 指定繼任；4-5 → 處決
//
// 否決不分人數，自第 5 項陰謀起加入集合，且只由否決流程本身消耗。
func (g *Game) updateAvailablePowers() {
	g.availablePowers = make(map[Power]struct{})
	n := len(g.players)

	switch {
	case n <= 6:
		if g.plotsCount == 3 {
			g.availablePowers[PowerPeek] = struct{}{}
		} else if g.plotsCount == 4 || g.plotsCount == 5 {
			g.availablePowers[PowerExecution] = struct{}{}
		}
	case n <= 8:
		if g.plotsCount == 2 {
			g.availablePowers[PowerInvestigation] = struct{}{}
		} else if g.plotsCount == 3 {
			g.availablePowers[PowerDesignation] = struct{}{}
		} else if g.plotsCount == 4 || g.plotsCount == 5 {
			g.availablePowers[PowerExecution] = struct{}{}
		}
	default:
		if g.plotsCount == 1 || g.plotsCount == 2 {
			g.availablePowers[PowerInvestigation] = struct{}{}
		} else if g.plotsCount == 3 {
			g.availablePowers[PowerDesignation] = struct{}{}
		} else if g.plotsCount == 4 || g.plotsCount == 5 {
			g.availablePowers[PowerExecution] = struct{}{}
		}
	}

	if g.plotsCount >= 5 {
		g.availablePowers[PowerVeto] = struct{}{}
	}
}

// AvailablePowers 回傳目前可用的權力集合（副本）
func (g *Game) AvailablePowers() []Power {
	powers := make([]Power, 0, len(g.availablePowers))
	for _, p := range []Power{PowerInvestigation, PowerPeek, PowerDesignation, PowerExecution, PowerVeto} {
		if _, ok := g.availablePowers[p]; ok {
			powers = append(powers, p)
		}
	}
	return powers
}

// UsePower 由現任國王使用一項當前可用的權力。
// 否決不在此消耗，必須走 ProposeVeto/RespondToVeto。
// 除了終結對局的處決之外，使用後一律進入辯論階段。
func (g *Game) UsePower(kingID string, power Power, targetID string) (PowerResult, error) {
	if kingID != g.currentKingID {
		return PowerResult{}, validationf("你不是國王")
	}
	if power == PowerVeto {
		return PowerResult{}, validationf("否決必須由大法官提出")
	}
	if _, ok := g.availablePowers[power]; !ok {
		return PowerResult{}, validationf("該權力目前不可使用")
	}

	result := PowerResult{Power: power}
	switch power {
	case PowerInvestigation:
		target := g.players[targetID]
		if target == nil || !target.IsAlive {
			return PowerResult{}, validationf("無效的調查對象")
		}
		result.TargetID = targetID
		result.TargetName = target.Name
		result.Faction = target.Faction

	case PowerPeek:
		if len(g.deck) < 3 {
			g.reshuffleDeck()
		}
		if len(g.deck) < 3 {
			return PowerResult{}, integrityf("牌堆不足以窺探三張法令")
		}
		// 只偷看不抽出
		result.Cards = append([]Decree(nil), g.deck[:3]...)

	case PowerDesignation:
		target := g.players[targetID]
		if target == nil || !target.IsAlive {
			return PowerResult{}, validationf("無效的指定對象")
		}
		g.currentKingID = targetID
		result.TargetID = targetID
		result.DesignatedKingID = targetID

	case PowerExecution:
		target := g.players[targetID]
		if target == nil || !target.IsAlive {
			return PowerResult{}, validationf("無效的處決對象")
		}
		target.IsAlive = false
		result.TargetID = targetID
		result.ExecutedID = targetID
		if target.Role == RoleUsurper {
			g.endGame(FactionLoyalists, "篡位者已被處決！")
			result.WasUsurper = true
			result.GameOver = true
		}

	default:
		return PowerResult{}, validationf("未知的權力")
	}

	delete(g.availablePowers, power)
	if !result.GameOver {
		g.phase = PhaseDebate
	}
	return result, nil
}

// === 回合結束 ===

// EndTurn 由現任國王在辯論階段結束本回合：
// 現任國王／大法官歸檔為「上一任」、清空提名與手牌暫存，
// 並沿 playerOrder 的存活玩家輪替國王後回到提名階段。
func (g *Game) EndTurn(playerID string) error {
	if g.phase != PhaseDebate {
		return validationf("現在不是結束回合的時機")
	}
	if playerID != g.currentKingID {
		return validationf("僅國王可以結束回合")
	}
	g.advanceTurn()
	return nil
}

func (g *Game) advanceTurn() {
	g.previousKingID = g.currentKingID
	g.previousChancellorID = g.currentChancellorID
	g.currentChancellorID = ""
	g.nominatedChancellorID = ""
	g.currentDecrees = g.currentDecrees[:0]

	g.rotateKing()
	g.phase = PhaseNomination
}

// rotateKing 沿開局固定的順位輪替，跳過陣亡者
func (g *Game) rotateKing() {
	alive := g.alivePlayerIDs()
	if len(alive) == 0 {
		return
	}
	current := -1
	for i, id := range alive {
		if id == g.currentKingID {
			current = i
			break
		}
	}
	g.currentKingID = alive[(current+1)%len(alive)]
}

// === 終局 ===

func (g *Game) endGame(winner Faction, reason string) {
	g.phase = PhaseGameOver
	g.winningFaction = winner
	g.gameOverReason = reason
}
