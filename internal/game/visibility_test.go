package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownIDs(known []KnownPlayer) []string {
	ids := make([]string, 0, len(known))
	for _, k := range known {
		ids = append(ids, k.ID)
	}
	return ids
}

func TestNoKnowledgeInLobby(t *testing.T) {
	g := newLobby(t, 5, 50)
	assert.Empty(t, g.KnownPlayers("p1"))
}

func TestKnownPlayersUnknownID(t *testing.T) {
	g := newStarted(t, 5, 50)
	assert.Empty(t, g.KnownPlayers("ghost"))
}

func TestLoyalistKnowsOnlySelf(t *testing.T) {
	g := newStarted(t, 7, 51)
	loyalist := findByRole(g, RoleLoyalist)

	known := g.KnownPlayers(loyalist.ID)
	require.Len(t, known, 1)
	assert.Equal(t, loyalist.ID, known[0].ID)
	assert.Equal(t, RoleLoyalist, known[0].Role)
}

// 篡位者在預設下誰也不認得，不論人數與其他開關
func TestUsurperKnowsOnlySelfByDefault(t *testing.T) {
	for _, n := range []int{5, 7, 10} {
		g := newStarted(t, n, int64(52+n))
		g.settings.ConspiratorsKnowUsurper = true
		g.settings.LimitedConspiratorsKnowledge = true

		usurper := findByRole(g, RoleUsurper)
		known := g.KnownPlayers(usurper.ID)
		require.Len(t, known, 1, "%d 人局", n)
		assert.Equal(t, usurper.ID, known[0].ID)
	}
}

func TestUsurperKnowsAlliesWhenEnabled(t *testing.T) {
	g := newStarted(t, 7, 53)
	g.settings.UsurperKnowsAllies = true

	usurper := findByRole(g, RoleUsurper)
	known := g.KnownPlayers(usurper.ID)

	require.Len(t, known, 3, "自己 + 兩名陰謀者")
	for _, k := range known[1:] {
		assert.Equal(t, RoleConspirator, k.Role)
	}
}

func TestConspiratorsKnowEachOther(t *testing.T) {
	g := newStarted(t, 7, 54)
	conspirators := g.playersWithRole(RoleConspirator)
	require.Len(t, conspirators, 2)

	known := g.KnownPlayers(conspirators[0].ID)
	ids := knownIDs(known)

	assert.Contains(t, ids, conspirators[0].ID)
	assert.Contains(t, ids, conspirators[1].ID)
	assert.Len(t, known, 2, "預設看不見篡位者")
}

func TestConspiratorsSeeUsurperWhenEnabled(t *testing.T) {
	g := newStarted(t, 7, 55)
	g.settings.ConspiratorsKnowUsurper = true

	conspirator := findByRole(g, RoleConspirator)
	usurper := findByRole(g, RoleUsurper)

	ids := knownIDs(g.KnownPlayers(conspirator.ID))
	assert.Contains(t, ids, usurper.ID)
	assert.Len(t, ids, 3)
}

// 9-10 人局的環狀鏈：每名陰謀者只看見下一名，合起來恰好繞完一圈
func TestLimitedKnowledgeCircularChain(t *testing.T) {
	g := newStarted(t, 9, 56)
	g.settings.LimitedConspiratorsKnowledge = true

	conspirators := g.playersWithRole(RoleConspirator)
	require.Len(t, conspirators, 3)

	seen := make(map[string]int)
	for _, c := range conspirators {
		known := g.KnownPlayers(c.ID)
		require.Len(t, known, 2, "自己 + 鏈上的下一位")
		ally := known[1]
		assert.NotEqual(t, c.ID, ally.ID)
		assert.Equal(t, RoleConspirator, ally.Role)
		seen[ally.ID]++
	}

	assert.Len(t, seen, 3, "三名陰謀者各被恰好一人看見")
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

// 開關開著但條件不滿足（人數 <9）時仍是全知模式
func TestLimitedKnowledgeIgnoredBelowNinePlayers(t *testing.T) {
	g := newStarted(t, 7, 57)
	g.settings.LimitedConspiratorsKnowledge = true

	conspirator := findByRole(g, RoleConspirator)
	assert.Len(t, g.KnownPlayers(conspirator.ID), 2, "自己 + 另一名陰謀者")
}

func TestPlayerStateCarriesPrivateView(t *testing.T) {
	g := newStarted(t, 5, 58)
	usurper := findByRole(g, RoleUsurper)

	state := g.PlayerState(usurper.ID)
	require.NotNil(t, state)
	assert.Equal(t, RoleUsurper, state.YourRole)
	assert.Equal(t, FactionConspirators, state.YourFaction)
	assert.True(t, state.IsAlive)
	assert.Len(t, state.KnownPlayers, 1)

	assert.Nil(t, g.PlayerState("ghost"))
}

func TestPublicStateHidesHands(t *testing.T) {
	g := newStarted(t, 5, 59)

	state := g.PublicState()
	assert.Equal(t, "room1", state.RoomID)
	assert.Equal(t, totalPlots+totalEdits, state.DeckSize)
	assert.Equal(t, 5, state.PlayerCount)
	assert.Len(t, state.PlayerOrder, 5)
	assert.Empty(t, state.EliminatedPlayers)
	assert.False(t, state.VetoUnlocked)
}

func TestPlayerListFollowsSeatingOrder(t *testing.T) {
	g := newLobby(t, 5, 60)

	list := g.PlayerList()
	require.Len(t, list, 5)
	assert.Equal(t, "p1", list[0].ID, "未開局時依加入順序")
	assert.True(t, list[0].IsHost)

	require.NoError(t, g.Start())
	list = g.PlayerList()
	for i, id := range g.playerOrder {
		assert.Equal(t, id, list[i].ID)
	}
}

func TestFinalRolesRevealEveryone(t *testing.T) {
	g := newStarted(t, 5, 61)
	g.players[g.playerOrder[0]].IsAlive = false

	roles := g.FinalRoles()
	require.Len(t, roles, 5)
	var usurpers int
	for _, r := range roles {
		assert.NotEmpty(t, r.Role)
		if r.Role == RoleUsurper {
			usurpers++
		}
	}
	assert.Equal(t, 1, usurpers)
	assert.False(t, roles[0].IsAlive)
}
