package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtshadows/internal/game"
)

// newSeatedRoom 建一個已有 n 名玩家的房間，玩家 ID 依序為 p1..pn
func newSeatedRoom(t *testing.T, n int) *Room {
	t.Helper()
	reg := newTestRegistry()
	room, err := reg.RoomOrCreate("HALL", "主持", "", true)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		require.NoError(t, room.game.AddPlayer(
			fmt.Sprintf("p%d", i), fmt.Sprintf("user%d", i), fmt.Sprintf("玩家%d", i)))
	}
	return room
}

// wiredClient 給測試用的離線連線：只有緩衝佇列，沒有底層 socket
func wiredClient(username, playerID string) *Client {
	return &Client{
		send:     make(chan []byte, sendBufferSize),
		username: username,
		playerID: playerID,
	}
}

func roomPhase(r *Room) game.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Phase()
}

// 身份展示期間斷線暫停會吃掉一次性的展示計時器；
// 重連復賽後計時器要重新排定，否則房間停在 role_reveal 進不了提名
func TestReconnectReschedulesRoleReveal(t *testing.T) {
	room := newSeatedRoom(t, 5)
	require.NoError(t, room.game.Start())
	require.Equal(t, game.PhaseRoleReveal, room.game.Phase())
	require.True(t, room.game.PauseForDisconnect("user3", "p3"))

	c := wiredClient("user3", "")
	require.NoError(t, room.Reconnect(c))

	assert.Eventually(t, func() bool {
		return roomPhase(room) == game.PhaseNomination
	}, 3*time.Second, 25*time.Millisecond)
}

// 房主在 role_reveal 暫停期間強制復賽，同樣要重排展示計時器
func TestForceResumeReschedulesRoleReveal(t *testing.T) {
	room := newSeatedRoom(t, 5)
	require.NoError(t, room.game.Start())
	require.True(t, room.game.PauseForDisconnect("user3", "p3"))

	host := wiredClient("user1", room.game.HostID())
	require.NoError(t, room.HandleForceResume(host))

	assert.Eventually(t, func() bool {
		return roomPhase(room) == game.PhaseNomination
	}, 3*time.Second, 25*time.Millisecond)
}

// 表決只差一票時投票者斷線、房主強制復賽：
// 作廢其選票後票數剛好收齊，房間要當場結算表決
func TestForceResumeResolvesCompletedBallot(t *testing.T) {
	room := newSeatedRoom(t, 5)
	g := room.game
	require.NoError(t, g.Start())
	g.FinishRoleReveal()

	king := g.CurrentKingID()
	var nominee string
	for _, p := range g.AlivePlayers() {
		if p.ID != king {
			nominee = p.ID
			break
		}
	}
	require.NoError(t, g.NominateChancellor(king, nominee))

	var lagger *game.Player
	for _, p := range g.AlivePlayers() {
		if p.ID != g.HostID() {
			lagger = p
			break
		}
	}
	for _, p := range g.AlivePlayers() {
		if p.ID == lagger.ID {
			continue
		}
		_, err := g.CastVote(p.ID, game.VoteYes)
		require.NoError(t, err)
	}
	require.True(t, g.PauseForDisconnect(lagger.Username, lagger.ID))

	host := wiredClient("user1", g.HostID())
	require.NoError(t, room.HandleForceResume(host))

	assert.Equal(t, game.PhaseLegislative, g.Phase(), "四張贊成票應當場結算通過")
	assert.Equal(t, nominee, g.CurrentChancellorID())
}
