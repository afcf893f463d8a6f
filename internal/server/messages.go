package server

import "courtshadows/internal/game"

// 客戶端 → 伺服器的訊息類型
const (
	MsgJoinGame       = "join_game"
	MsgReconnect      = "reconnect"
	MsgGetPublicGames = "get_public_games"
	MsgGetPlayerGames = "get_player_games"
	MsgStartGame      = "start_game"
	MsgUpdateSettings = "update_settings"
	MsgNominate       = "nominate_chancellor"
	MsgVote           = "vote"
	MsgDiscardDecree  = "discard_decree"
	MsgUsePower       = "use_power"
	MsgProposeVeto    = "propose_veto"
	MsgVetoResponse   = "veto_response"
	MsgEndTurn        = "end_turn"
	MsgForcePause     = "force_pause"
	MsgForceResume    = "force_resume"
	MsgStopGame       = "stop_game"
	MsgKickPlayer     = "kick_player"
	MsgBanPlayer      = "ban_player"
	MsgChatMessage    = "chat_message"
	MsgPing           = "ping"
)

// 伺服器 → 客戶端的訊息類型
const (
	MsgPublicGamesList   = "public_games_list"
	MsgPlayerGamesList   = "player_games_list"
	MsgPlayerList        = "player_list"
	MsgGameState         = "game_state"
	MsgPhaseChange       = "phase_change"
	MsgRoleAssignment    = "role_assignment"
	MsgNominationResult  = "nomination_result"
	MsgVoteStatus        = "vote_status"
	MsgVoteResult        = "vote_result"
	MsgKingDecrees       = "king_decrees"
	MsgChancellorDecrees = "chancellor_decrees"
	MsgDecreePassed      = "decree_passed"
	MsgPowerActivated    = "power_activated"
	MsgPowerResult       = "power_result"
	MsgPowerUsed         = "power_used"
	MsgExecutionResult   = "execution_result"
	MsgVetoProposed      = "veto_proposed"
	MsgVetoPending       = "veto_pending"
	MsgVetoResult        = "veto_result"
	MsgGameOver          = "game_over"
	MsgGamePaused        = "game_paused"
	MsgGameResumed       = "game_resumed"
	MsgGameStopped       = "game_stopped"
	MsgPlayerKicked      = "player_kicked"
	MsgPlayerBanned      = "player_banned"
	MsgChatBroadcast     = "chat_broadcast"
	MsgError             = "error"
	MsgPong              = "pong"
)

// clientMessage 是客戶端訊息的統一外形：type 加上扁平的參數欄位。
// 身份（帳號、玩家 ID、所在房間）一律取自連線本身，不信任訊息內容。
type clientMessage struct {
	Type           string             `json:"type"`
	RoomID         string             `json:"roomId,omitempty"`
	PlayerName     string             `json:"playerName,omitempty"`
	IsPublic       *bool              `json:"isPublic,omitempty"`
	Password       string             `json:"password,omitempty"`
	Settings       game.SettingsPatch `json:"settings"`
	ChancellorID   string             `json:"chancellorId,omitempty"`
	Vote           game.Vote          `json:"vote,omitempty"`
	DiscardedIndex int                `json:"discardedIndex"`
	IsKing         bool               `json:"isKing,omitempty"`
	Power          game.Power         `json:"power,omitempty"`
	TargetID       string             `json:"targetId,omitempty"`
	TargetPlayerID string             `json:"targetPlayerId,omitempty"`
	Accepted       bool               `json:"accepted,omitempty"`
	Message        string             `json:"message,omitempty"`
}

// serverMessage 是伺服器訊息的統一信封。多數訊息只帶 type 與 data；
// join_game 額外帶 success、phase_change 把階段放在頂層、error 只帶 message。
type serverMessage struct {
	Type    string      `json:"type"`
	Success bool        `json:"success,omitempty"`
	Phase   game.Phase  `json:"phase,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func dataMsg(msgType string, data interface{}) serverMessage {
	return serverMessage{Type: msgType, Data: data}
}

func errMsg(text string) serverMessage {
	return serverMessage{Type: MsgError, Message: text}
}

func phaseMsg(phase game.Phase) serverMessage {
	return serverMessage{Type: MsgPhaseChange, Phase: phase}
}

// === data 酬載 ===

type joinData struct {
	PlayerID    string `json:"playerId"`
	RoomID      string `json:"roomId"`
	IsHost      bool   `json:"isHost"`
	Reconnected bool   `json:"reconnected,omitempty"`
}

type roleAssignmentData struct {
	Role    game.Role          `json:"role"`
	Faction game.Faction       `json:"faction"`
	Allies  []game.KnownPlayer `json:"allies,omitempty"`
}

type nominationData struct {
	KingID         string `json:"kingId"`
	ChancellorID   string `json:"chancellorId"`
	ChancellorName string `json:"chancellorName"`
}

type voteStatusData struct {
	VotedPlayerIDs []string `json:"votedPlayerIds"`
	TotalPlayers   int      `json:"totalPlayers"`
}

type voteResultData struct {
	game.VoteOutcome
	VoteDetails []game.VoteDetail `json:"voteDetails"`
}

type decreesData struct {
	Decrees      []game.Decree `json:"decrees"`
	VetoRejected bool          `json:"vetoRejected,omitempty"`
}

type decreePassedData struct {
	Decree     game.Decree `json:"decree"`
	PlotsCount int         `json:"plotsCount"`
	EditsCount int         `json:"editsCount"`
	IsDeadlock bool        `json:"isDeadlock,omitempty"`
}

type powerActivatedData struct {
	AvailablePowers []game.Power `json:"availablePowers"`
}

type powerUsedData struct {
	Power    game.Power `json:"power"`
	KingID   string     `json:"kingId"`
	TargetID string     `json:"targetId,omitempty"`
}

type executionData struct {
	ExecutedID   string `json:"executedId"`
	ExecutedName string `json:"executedName"`
	WasUsurper   bool   `json:"wasUsurper"`
}

type vetoProposedData struct {
	ChancellorID   string `json:"chancellorId,omitempty"`
	ChancellorName string `json:"chancellorName"`
}

type gameOverData struct {
	Winner   game.Faction     `json:"winner"`
	Reason   string           `json:"reason"`
	AllRoles []game.FinalRole `json:"allRoles"`
}

type pausedData struct {
	DisconnectedPlayer string `json:"disconnectedPlayer,omitempty"`
	Message            string `json:"message"`
}

type resumedData struct {
	PlayerName string `json:"playerName,omitempty"`
	Message    string `json:"message,omitempty"`
}

type noticeData struct {
	Message string `json:"message"`
}

type kickedData struct {
	Reason           string `json:"reason,omitempty"`
	KickedPlayerName string `json:"kickedPlayerName,omitempty"`
	Banned           bool   `json:"banned,omitempty"`
}

type chatData struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}
