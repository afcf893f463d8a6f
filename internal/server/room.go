package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courtshadows/internal/game"
)

// 身份展示的停留時間，之後自動進入提名階段
const roleRevealDelay = 2 * time.Second

// Room 把一個 Game 與其連線綁在一起。所有進入點先取 mu，
// 再呼叫 *Locked 輔助方法；盤面規則全部委派給 game 套件。
type Room struct {
	id       string
	registry *Registry
	log      zerolog.Logger

	mu            sync.Mutex
	game          *game.Game
	clients       map[string]*Client // playerID -> 連線
	revealTimer   *time.Timer
	statsRecorded bool
	closed        bool
}

func newRoom(id string, registry *Registry) *Room {
	return &Room{
		id:       id,
		registry: registry,
		log:      registry.log.With().Str("room", id).Logger(),
		game:     game.New(id, 0),
		clients:  make(map[string]*Client),
	}
}

// HasPlayer 檢查帳號是否佔有本房間的席位
func (r *Room) HasPlayer(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.HasUsername(username)
}

// === 進出房間 ===

// Join 讓帳號以新席位加入大廳
func (r *Room) Join(c *Client, playerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return game.NewValidationError("房間已關閉")
	}
	if r.game.IsBanned(c.username) {
		return game.NewValidationError("你已被此房間封鎖")
	}
	for _, cl := range r.clients {
		if cl.username == c.username {
			return game.NewValidationError("你已經在這個房間的另一個分頁中")
		}
	}

	playerID := uuid.NewString()
	if err := r.game.AddPlayer(playerID, c.username, playerName); err != nil {
		return err
	}

	r.clients[playerID] = c
	c.attach(r, playerID)
	r.registry.RegisterPlayer(c.username, r.id)

	r.sendLocked(playerID, serverMessage{
		Type:    MsgJoinGame,
		Success: true,
		Data: joinData{
			PlayerID: playerID,
			RoomID:   r.id,
			IsHost:   r.game.Player(playerID).IsHost,
		},
	})
	r.sendPlayerListLocked()
	r.sendStateToAllLocked()
	r.updateMetadataLocked()

	r.log.Info().Str("player", playerName).Str("user", c.username).Msg("玩家加入")
	return nil
}

// Reconnect 讓斷線玩家以新連線取回席位
func (r *Room) Reconnect(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.game.CanReconnect(c.username) {
		return game.NewValidationError("找不到可重連的對局")
	}

	newID := uuid.NewString()
	result, err := r.game.Reconnect(c.username, newID)
	if err != nil {
		return err
	}

	delete(r.clients, result.OldPlayerID)
	r.clients[newID] = c
	c.attach(r, newID)

	r.sendLocked(newID, serverMessage{
		Type:    MsgJoinGame,
		Success: true,
		Data: joinData{
			PlayerID:    newID,
			RoomID:      r.id,
			IsHost:      r.game.Player(newID).IsHost,
			Reconnected: true,
		},
	})
	r.sendRoleLocked(newID)

	if result.Resumed {
		r.broadcastLocked(dataMsg(MsgGameResumed, resumedData{PlayerName: result.PlayerName}))
		r.armRevealTimerLocked()
	}
	r.sendPlayerListLocked()
	r.sendStateToAllLocked()
	r.updateMetadataLocked()

	r.log.Info().Str("player", result.PlayerName).Bool("resumed", result.Resumed).Msg("玩家重連")
	return nil
}

// HandleDisconnect 處理連線斷開：進行中暫停等待重連，大廳直接移除
func (r *Room) HandleDisconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	playerID := c.playerID
	player := r.game.Player(playerID)
	delete(r.clients, playerID)
	if player == nil {
		return
	}

	if r.game.Phase().InProgress() {
		if r.game.PauseForDisconnect(c.username, playerID) {
			r.broadcastLocked(dataMsg(MsgGamePaused, pausedData{
				DisconnectedPlayer: player.Name,
				Message:            player.Name + " 已斷線，對局暫停中。",
			}))
			r.sendStateToAllLocked()
			r.log.Info().Str("player", player.Name).Msg("玩家斷線，對局暫停")
		}
		r.updateMetadataLocked()
		return
	}

	r.game.RemovePlayer(playerID)
	r.registry.UnregisterPlayer(c.username)

	if r.game.PlayerCount() == 0 {
		r.closeLocked()
		return
	}
	r.sendPlayerListLocked()
	r.sendStateToAllLocked()
	r.updateMetadataLocked()
}

// === 大廳操作 ===

func (r *Room) HandleStart(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.game.Player(c.playerID)
	if player == nil || !player.IsHost {
		return game.NewValidationError("僅房主可以開始對局")
	}
	if err := r.game.Start(); err != nil {
		return err
	}

	for playerID := range r.clients {
		r.sendRoleLocked(playerID)
	}
	r.broadcastLocked(phaseMsg(r.game.Phase()))

	r.armRevealTimerLocked()
	r.updateMetadataLocked()

	r.log.Info().Int("players", r.game.PlayerCount()).Msg("對局開始")
	return nil
}

// armRevealTimerLocked 排定 role_reveal → nomination 的延遲轉換。
// 計時器是一次性的：暫停吃掉觸發後，復賽路徑要再排一次
func (r *Room) armRevealTimerLocked() {
	if r.game.Phase() != game.PhaseRoleReveal {
		return
	}
	r.revealTimer = time.AfterFunc(roleRevealDelay, r.finishRoleReveal)
}

// finishRoleReveal 由計時器觸發 role_reveal → nomination 的轉換。
// 暫停中轉換不會發生，復賽時由 armRevealTimerLocked 重新排定。
func (r *Room) finishRoleReveal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := r.game.Phase()
	r.game.FinishRoleReveal()
	if r.game.Phase() != before {
		r.broadcastLocked(phaseMsg(r.game.Phase()))
		r.sendStateToAllLocked()
	}
}

func (r *Room) HandleUpdateSettings(c *Client, patch game.SettingsPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.game.Player(c.playerID)
	if player == nil || !player.IsHost {
		return game.NewValidationError("僅房主可以修改設定")
	}
	if err := r.game.UpdateSettings(patch); err != nil {
		return err
	}
	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

// HandleKick 把玩家踢出大廳；ban 為真時另外列入封鎖名單
func (r *Room) HandleKick(c *Client, targetID string, ban bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.game.Player(targetID)
	if target == nil {
		return game.NewValidationError("找不到該玩家")
	}
	targetUsername := target.Username

	var name string
	var err error
	if ban {
		name, err = r.game.BanPlayer(c.playerID, targetID)
	} else {
		name, err = r.game.KickPlayer(c.playerID, targetID)
	}
	if err != nil {
		return err
	}

	reason := "你已被房主移出房間"
	if ban {
		reason = "你已被房主封鎖，無法再加入此房間"
	}
	r.sendLocked(targetID, dataMsg(MsgPlayerKicked, kickedData{Reason: reason, Banned: ban}))

	if kicked, ok := r.clients[targetID]; ok {
		delete(r.clients, targetID)
		kicked.detach()
	}
	r.registry.UnregisterPlayer(targetUsername)

	msgType := MsgPlayerKicked
	if ban {
		msgType = MsgPlayerBanned
	}
	r.broadcastLocked(dataMsg(msgType, kickedData{KickedPlayerName: name, Banned: ban}))
	r.sendPlayerListLocked()
	r.sendStateToAllLocked()
	r.updateMetadataLocked()
	return nil
}

// === 對局操作 ===

func (r *Room) HandleNominate(c *Client, chancellorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.NominateChancellor(c.playerID, chancellorID); err != nil {
		return err
	}

	r.broadcastLocked(dataMsg(MsgNominationResult, nominationData{
		KingID:         c.playerID,
		ChancellorID:   chancellorID,
		ChancellorName: r.game.Player(chancellorID).Name,
	}))
	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleVote(c *Client, vote game.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	allIn, err := r.game.CastVote(c.playerID, vote)
	if err != nil {
		return err
	}

	r.broadcastLocked(dataMsg(MsgVoteStatus, voteStatusData{
		VotedPlayerIDs: r.game.VotedPlayerIDs(),
		TotalPlayers:   len(r.game.AlivePlayers()),
	}))

	if allIn {
		if err := r.resolveBallotLocked(); err != nil {
			return err
		}
	}

	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

// resolveBallotLocked 結算收齊的表決並推進後續階段：
// 廣播結果、立法階段發牌給國王、權力階段通知可用權力
func (r *Room) resolveBallotLocked() error {
	details := r.game.VoteDetails()
	outcome, err := r.game.ResolveVote()
	if err != nil {
		return err
	}

	r.broadcastLocked(dataMsg(MsgVoteResult, voteResultData{
		VoteOutcome: outcome,
		VoteDetails: details,
	}))

	if outcome.GameOver {
		r.finishGameLocked()
	}

	if r.game.Phase() == game.PhaseLegislative {
		decrees, err := r.game.KingDrawDecrees()
		if err != nil {
			return err
		}
		r.sendLocked(r.game.CurrentKingID(), dataMsg(MsgKingDecrees, decreesData{Decrees: decrees}))
	}

	if outcome.HasPower && r.game.Phase() == game.PhaseExecutivePower {
		r.sendPowerActivatedLocked()
	}
	return nil
}

// HandleDiscard 處理立法階段的棄牌：國王棄第一張、大法官棄第二張
func (r *Room) HandleDiscard(c *Client, index int, isKing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isKing {
		remaining, err := r.game.KingDiscardDecree(c.playerID, index)
		if err != nil {
			return err
		}
		r.sendLocked(r.game.CurrentChancellorID(), dataMsg(MsgChancellorDecrees, decreesData{Decrees: remaining}))
	} else {
		passed, err := r.game.ChancellorDiscardDecree(c.playerID, index)
		if err != nil {
			return err
		}

		r.broadcastLocked(dataMsg(MsgDecreePassed, decreePassedData{
			Decree:     passed,
			PlotsCount: r.game.PlotsCount(),
			EditsCount: r.game.EditsCount(),
		}))

		switch r.game.Phase() {
		case game.PhaseGameOver:
			r.finishGameLocked()
		case game.PhaseExecutivePower:
			r.sendPowerActivatedLocked()
		}
	}

	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleUsePower(c *Client, power game.Power, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.game.UsePower(c.playerID, power, targetID)
	if err != nil {
		return err
	}

	r.sendLocked(c.playerID, dataMsg(MsgPowerResult, result))

	if power == game.PowerExecution {
		executedName := "未知"
		if target := r.game.Player(targetID); target != nil {
			executedName = target.Name
		}
		r.broadcastLocked(dataMsg(MsgExecutionResult, executionData{
			ExecutedID:   targetID,
			ExecutedName: executedName,
			WasUsurper:   result.WasUsurper,
		}))
		r.sendPlayerListLocked()

		if result.GameOver {
			r.finishGameLocked()
		}
	} else {
		r.broadcastExceptLocked(c.playerID, dataMsg(MsgPowerUsed, powerUsedData{
			Power:    power,
			KingID:   c.playerID,
			TargetID: targetID,
		}))
	}

	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleProposeVeto(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.ProposeVeto(c.playerID); err != nil {
		return err
	}

	chancellorName := r.game.Player(c.playerID).Name
	kingID := r.game.CurrentKingID()

	r.sendLocked(kingID, dataMsg(MsgVetoProposed, vetoProposedData{
		ChancellorID:   c.playerID,
		ChancellorName: chancellorName,
	}))
	r.broadcastExceptLocked(kingID, dataMsg(MsgVetoPending, vetoProposedData{
		ChancellorName: chancellorName,
	}))
	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleVetoResponse(c *Client, accepted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome, err := r.game.RespondToVeto(c.playerID, accepted)
	if err != nil {
		return err
	}

	r.broadcastLocked(dataMsg(MsgVetoResult, outcome))

	if !outcome.Accepted {
		r.sendLocked(r.game.CurrentChancellorID(), dataMsg(MsgChancellorDecrees, decreesData{
			Decrees:      r.game.CurrentDecrees(),
			VetoRejected: true,
		}))
	}

	if outcome.Deadlock && outcome.AutoPassed != "" {
		r.broadcastLocked(dataMsg(MsgDecreePassed, decreePassedData{
			Decree:     outcome.AutoPassed,
			PlotsCount: r.game.PlotsCount(),
			EditsCount: r.game.EditsCount(),
			IsDeadlock: true,
		}))

		switch r.game.Phase() {
		case game.PhaseGameOver:
			r.finishGameLocked()
		case game.PhaseExecutivePower:
			r.sendPowerActivatedLocked()
		}
	}

	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleEndTurn(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.EndTurn(c.playerID); err != nil {
		return err
	}
	r.broadcastLocked(phaseMsg(r.game.Phase()))
	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

// === 暫停控制 ===

func (r *Room) HandleForcePause(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.ForcePause(c.playerID); err != nil {
		return err
	}
	r.broadcastLocked(dataMsg(MsgGamePaused, pausedData{Message: "房主已暫停對局。"}))
	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleForceResume(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed, err := r.game.ForceResume(c.playerID)
	if err != nil {
		return err
	}

	message := "對局繼續！"
	if len(removed) > 0 {
		message = "房主強制恢復對局，淘汰斷線玩家："
		for i, name := range removed {
			if i > 0 {
				message += "、"
			}
			message += name
		}
	}
	r.broadcastLocked(dataMsg(MsgGameResumed, resumedData{Message: message}))
	r.sendPlayerListLocked()
	r.armRevealTimerLocked()

	// 淘汰斷線玩家可能讓表決剛好收齊，這裡要補結算
	if r.game.BallotComplete() {
		if err := r.resolveBallotLocked(); err != nil {
			return err
		}
	}

	r.sendStateToAllLocked()
	r.touchLocked()
	return nil
}

func (r *Room) HandleStop(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.game.Stop(c.playerID); err != nil {
		return err
	}
	if r.revealTimer != nil {
		r.revealTimer.Stop()
	}

	r.broadcastLocked(dataMsg(MsgGameStopped, noticeData{Message: "房主已終止對局，回到大廳。"}))
	r.sendPlayerListLocked()
	r.sendStateToAllLocked()
	r.updateMetadataLocked()
	r.log.Info().Msg("房主終止對局")
	return nil
}

// === 聊天 ===

func (r *Room) HandleChat(c *Client, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.game.Player(c.playerID)
	if player == nil || message == "" {
		return nil
	}

	r.broadcastLocked(dataMsg(MsgChatBroadcast, chatData{
		PlayerID:   c.playerID,
		PlayerName: player.Name,
		Message:    message,
		Timestamp:  time.Now().UnixMilli(),
	}))
	r.touchLocked()
	return nil
}

// === 終局與關閉 ===

// finishGameLocked 廣播終局揭示並記錄每位玩家的勝敗戰績
func (r *Room) finishGameLocked() {
	r.broadcastLocked(dataMsg(MsgGameOver, gameOverData{
		Winner:   r.game.WinningFaction(),
		Reason:   r.game.GameOverReason(),
		AllRoles: r.game.FinalRoles(),
	}))

	if r.statsRecorded || r.registry.store == nil {
		return
	}
	r.statsRecorded = true

	type outcome struct {
		username string
		won      bool
	}
	results := make([]outcome, 0, r.game.PlayerCount())
	winner := r.game.WinningFaction()
	for _, fr := range r.game.FinalRoles() {
		p := r.game.Player(fr.ID)
		if p == nil || p.Username == "" {
			continue
		}
		results = append(results, outcome{username: p.Username, won: fr.Faction == winner})
	}

	st := r.registry.store
	log := r.log
	go func() {
		for _, res := range results {
			if err := st.RecordResult(res.username, res.won); err != nil {
				log.Error().Err(err).Str("user", res.username).Msg("寫入戰績失敗")
			}
		}
	}()

	r.log.Info().Str("winner", string(winner)).Str("reason", r.game.GameOverReason()).Msg("對局結束")
	r.updateMetadataLocked()
}

// Shutdown 關閉房間並斷開所有連線
func (r *Room) Shutdown(reason string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.broadcastLocked(errMsg(reason))
	for _, c := range r.clients {
		c.detach()
	}
	r.clients = make(map[string]*Client)
	r.closeLocked()
	r.mu.Unlock()
}

// closeLocked 從索引移除本房間；revealTimer 一併停掉
func (r *Room) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	if r.revealTimer != nil {
		r.revealTimer.Stop()
	}
	r.registry.DeleteRoom(r.id, r.game.Usernames())
}

// === 廣播輔助 ===

func (r *Room) sendLocked(playerID string, msg serverMessage) {
	c, ok := r.clients[playerID]
	if !ok {
		return
	}
	c.enqueue(mustMarshal(msg))
}

func (r *Room) broadcastLocked(msg serverMessage) {
	raw := mustMarshal(msg)
	for _, c := range r.clients {
		c.enqueue(raw)
	}
}

func (r *Room) broadcastExceptLocked(playerID string, msg serverMessage) {
	raw := mustMarshal(msg)
	for id, c := range r.clients {
		if id != playerID {
			c.enqueue(raw)
		}
	}
}

func (r *Room) sendPlayerListLocked() {
	r.broadcastLocked(dataMsg(MsgPlayerList, r.game.PlayerList()))
}

// sendStateToAllLocked 每位玩家收到的是自己視角的快照
func (r *Room) sendStateToAllLocked() {
	for playerID, c := range r.clients {
		state := r.game.PlayerState(playerID)
		if state == nil {
			continue
		}
		c.enqueue(mustMarshal(dataMsg(MsgGameState, state)))
	}
}

// sendRoleLocked 發送身份與盟友名單（盟友即已知名單扣掉自己）
func (r *Room) sendRoleLocked(playerID string) {
	player := r.game.Player(playerID)
	if player == nil {
		return
	}
	known := r.game.KnownPlayers(playerID)
	var allies []game.KnownPlayer
	for _, k := range known {
		if k.ID != playerID {
			allies = append(allies, k)
		}
	}
	r.sendLocked(playerID, dataMsg(MsgRoleAssignment, roleAssignmentData{
		Role:    player.Role,
		Faction: player.Faction,
		Allies:  allies,
	}))
}

func (r *Room) sendPowerActivatedLocked() {
	r.sendLocked(r.game.CurrentKingID(), dataMsg(MsgPowerActivated, powerActivatedData{
		AvailablePowers: r.game.AvailablePowers(),
	}))
}

func (r *Room) updateMetadataLocked() {
	r.registry.UpdateMetadata(r.id, r.game.PlayerCount(), r.game.Phase(), r.game.HostID())
}

// touchLocked 同步索引順便刷新閒置計時
func (r *Room) touchLocked() {
	r.updateMetadataLocked()
}

func mustMarshal(msg serverMessage) []byte {
	raw, err := json.Marshal(msg)
	if err != nil {
		// serverMessage 只含可序列化欄位，這裡失敗代表程式缺陷
		panic(err)
	}
	return raw
}
