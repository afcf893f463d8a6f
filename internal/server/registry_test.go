package server

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtshadows/internal/game"
)

func newTestRegistry() *Registry {
	return NewRegistry(nil, zerolog.Nop())
}

func TestRoomOrCreateGeneratesCode(t *testing.T) {
	r := newTestRegistry()

	room, err := r.RoomOrCreate("", "房主", "", true)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Len(t, room.id, roomCodeLength)
	assert.Same(t, room, r.Room(room.id))
}

func TestRoomOrCreateReturnsExisting(t *testing.T) {
	r := newTestRegistry()

	created, err := r.RoomOrCreate("SALON1", "房主", "", true)
	require.NoError(t, err)

	joined, err := r.RoomOrCreate("SALON1", "路人", "", true)
	require.NoError(t, err)
	assert.Same(t, created, joined)
}

func TestPrivateRoomPassword(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("SECRET", "房主", "開門密語", false)
	require.NoError(t, err)

	_, err = r.RoomOrCreate("SECRET", "路人", "亂猜", false)
	assert.Error(t, err)

	_, err = r.RoomOrCreate("SECRET", "路人", "開門密語", false)
	assert.NoError(t, err)
}

func TestPublicRoomIgnoresPassword(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("OPEN", "房主", "", true)
	require.NoError(t, err)

	_, err = r.RoomOrCreate("OPEN", "路人", "隨便填", false)
	assert.NoError(t, err, "公開房間不檢查密碼")
}

func TestPublicGamesOnlyListsLobbies(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("A", "甲", "", true)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = r.RoomOrCreate("B", "乙", "", true)
	require.NoError(t, err)
	_, err = r.RoomOrCreate("C", "丙", "", false)
	require.NoError(t, err)
	_, err = r.RoomOrCreate("D", "丁", "", true)
	require.NoError(t, err)

	// D 已開局，不再出現在大廳列表
	r.UpdateMetadata("D", 6, game.PhaseNomination, "host-d")

	games := r.PublicGames()
	require.Len(t, games, 2)
	assert.Equal(t, "B", games[0].RoomID, "新房間排前面")
	assert.Equal(t, "A", games[1].RoomID)
	assert.Equal(t, game.MaxPlayers, games[0].MaxPlayers)
}

func TestPlayerActiveGames(t *testing.T) {
	r := newTestRegistry()

	room, err := r.RoomOrCreate("WAR", "甲", "", true)
	require.NoError(t, err)
	require.NoError(t, room.game.AddPlayer("p1", "alice", "艾莉絲"))
	r.UpdateMetadata("WAR", 5, game.PhasePaused, "p1")

	lobby, err := r.RoomOrCreate("IDLE", "乙", "", true)
	require.NoError(t, err)
	require.NoError(t, lobby.game.AddPlayer("p2", "alice", "艾莉絲"))
	r.UpdateMetadata("IDLE", 1, game.PhaseLobby, "p2")

	games := r.PlayerActiveGames("alice")
	require.Len(t, games, 1, "大廳中的房間不算進行中")
	assert.Equal(t, "WAR", games[0].RoomID)
	assert.True(t, games[0].IsPaused)

	assert.Empty(t, r.PlayerActiveGames("bob"))
}

func TestFindPlayerRoom(t *testing.T) {
	r := newTestRegistry()

	room, err := r.RoomOrCreate("HOME", "甲", "", true)
	require.NoError(t, err)

	assert.Nil(t, r.FindPlayerRoom("alice"))

	r.RegisterPlayer("alice", "HOME")
	assert.Same(t, room, r.FindPlayerRoom("alice"))

	r.UnregisterPlayer("alice")
	assert.Nil(t, r.FindPlayerRoom("alice"))
}

func TestDeleteRoomClearsIndexes(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("GONE", "甲", "", true)
	require.NoError(t, err)
	r.RegisterPlayer("alice", "GONE")
	r.RegisterPlayer("bob", "ELSEWHERE")

	r.DeleteRoom("GONE", []string{"alice", "bob"})

	assert.Nil(t, r.Room("GONE"))
	assert.Nil(t, r.FindPlayerRoom("alice"))
	// bob 的索引指向別的房間，不可誤刪
	r.mu.Lock()
	_, bobStillIndexed := r.playerToRoom["bob"]
	r.mu.Unlock()
	assert.True(t, bobStillIndexed)
}

func TestStats(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("L1", "甲", "", true)
	require.NoError(t, err)
	_, err = r.RoomOrCreate("A1", "乙", "", true)
	require.NoError(t, err)
	_, err = r.RoomOrCreate("F1", "丙", "", true)
	require.NoError(t, err)

	r.UpdateMetadata("L1", 3, game.PhaseLobby, "h1")
	r.UpdateMetadata("A1", 7, game.PhaseDebate, "h2")
	r.UpdateMetadata("F1", 5, game.PhaseGameOver, "h3")

	stats := r.Stats()
	assert.Equal(t, 3, stats.TotalGames)
	assert.Equal(t, 1, stats.LobbyGames)
	assert.Equal(t, 1, stats.ActiveGames)
	assert.Equal(t, 15, stats.TotalPlayers)
}

func TestCleanupInactiveClosesStaleRooms(t *testing.T) {
	r := newTestRegistry()

	_, err := r.RoomOrCreate("STALE", "甲", "", true)
	require.NoError(t, err)
	_, err = r.RoomOrCreate("FRESH", "乙", "", true)
	require.NoError(t, err)

	r.mu.Lock()
	r.metadata["STALE"].lastActivity = time.Now().Add(-inactivityTimeout - time.Minute)
	r.mu.Unlock()

	r.cleanupInactive()

	assert.Nil(t, r.Room("STALE"))
	assert.NotNil(t, r.Room("FRESH"))
}
