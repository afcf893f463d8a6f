package game

// Phase 表示房間目前所處的遊戲階段
type Phase string

const (
	PhaseLobby          Phase = "lobby"
	PhaseRoleReveal     Phase = "role_reveal"
	PhaseNomination     Phase = "nomination"
	PhaseCouncilVote    Phase = "council_vote"
	PhaseLegislative    Phase = "legislative"
	PhaseExecutivePower Phase = "executive_power"
	PhaseDebate         Phase = "debate"
	PhasePaused         Phase = "paused"
	PhaseGameOver       Phase = "game_over"
)

// InProgress 回報該階段是否屬於進行中的對局（非大廳、非結束）
func (p Phase) InProgress() bool {
	return p != PhaseLobby && p != PhaseGameOver
}

// Role 表示玩家的祕密身份
type Role string

const (
	RoleUsurper     Role = "usurper"
	RoleConspirator Role = "conspirator"
	RoleLoyalist    Role = "loyalist"
)

// Faction 表示陣營，完全由 Role 決定
type Faction string

const (
	FactionConspirators Faction = "conspirators"
	FactionLoyalists    Faction = "loyalists"
)

// FactionOf 回傳身份對應的陣營：忠臣屬於保皇派，其餘皆為陰謀派
func FactionOf(role Role) Faction {
	if role == RoleLoyalist {
		return FactionLoyalists
	}
	return FactionConspirators
}

// Decree 表示一張法令牌
type Decree string

const (
	DecreePlot Decree = "plot"
	DecreeEdit Decree = "edit"
)

// Power 表示行政權力
type Power string

const (
	PowerInvestigation Power = "investigation"
	PowerPeek          Power = "peek"
	PowerDesignation   Power = "special_designation"
	PowerExecution     Power = "execution"
	PowerVeto          Power = "veto"
)

// Vote 表示議會表決的選項
type Vote string

const (
	VoteYes Vote = "yes"
	VoteNo  Vote = "no"
)

const (
	MinPlayers = 5
	MaxPlayers = 10

	totalPlots = 11
	totalEdits = 6

	plotsToWin             = 6
	editsToWin             = 5
	usurperRevealThreshold = 3
	maxConsecutiveDeadlock = 3
)

// roleDistribution 依玩家人數固定身份配置（篡位者另計，恆為一名）
var roleDistribution = map[int]struct {
	Conspirators int
	Loyalists    int
}{
	5:  {Conspirators: 1, Loyalists: 3},
	6:  {Conspirators: 1, Loyalists: 4},
	7:  {Conspirators: 2, Loyalists: 4},
	8:  {Conspirators: 2, Loyalists: 5},
	9:  {Conspirators: 3, Loyalists: 5},
	10: {Conspirators: 3, Loyalists: 6},
}

// Player 表示房間內的一名玩家
type Player struct {
	ID       string  `json:"id"`
	Username string  `json:"-"`
	Name     string  `json:"name"`
	Role     Role    `json:"role,omitempty"`
	Faction  Faction `json:"faction,omitempty"`
	IsAlive  bool    `json:"isAlive"`
	IsHost   bool    `json:"isHost"`
}

// Settings 為房主可調整的四個獨立開關
type Settings struct {
	ConspiratorsKnowUsurper        bool `json:"conspiratorsKnowUsurper"`
	UsurperKnowsAllies             bool `json:"usurperKnowsAllies"`
	LimitedConspiratorsKnowledge   bool `json:"limitedConspiratorsKnowledge"`
	PreviousKingCannotBeChancellor bool `json:"previousKingCannotBeChancellor"`
}

// SettingsPatch 只更新有帶值的欄位
type SettingsPatch struct {
	ConspiratorsKnowUsurper        *bool `json:"conspiratorsKnowUsurper,omitempty"`
	UsurperKnowsAllies             *bool `json:"usurperKnowsAllies,omitempty"`
	LimitedConspiratorsKnowledge   *bool `json:"limitedConspiratorsKnowledge,omitempty"`
	PreviousKingCannotBeChancellor *bool `json:"previousKingCannotBeChancellor,omitempty"`
}
