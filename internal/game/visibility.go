package game

// KnownPlayer 是玩家視角中「已知身份」的一筆資料
type KnownPlayer struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Role    Role    `json:"role"`
	Faction Faction `json:"faction"`
}

// KnownPlayers 計算指定玩家視角中所有已知身份的名單：
//
//   - 每個人都認得自己。
//   - 篡位者不認得任何其他人，除非 usurperKnowsAllies 開啟
//     （此時可見全部陰謀者，但陰謀者那側不因此看見他）。
//   - 陰謀者彼此互見；若 limitedConspiratorsKnowledge 開啟且為
//     9-10 人局（陰謀者 ≥3），改為環狀鏈：只看見順位上的下一名陰謀者。
//   - conspiratorsKnowUsurper 開啟時，陰謀者額外看見篡位者。
//   - 忠臣只認得自己。
//
// 大廳階段一律回傳空名單（身份尚未發放）。
func (g *Game) KnownPlayers(playerID string) []KnownPlayer {
	p := g.players[playerID]
	if p == nil || g.phase == PhaseLobby {
		return []KnownPlayer{}
	}

	known := []KnownPlayer{knownEntry(p)}

	switch p.Role {
	case RoleConspirator:
		conspirators := g.playersWithRole(RoleConspirator)

		if g.settings.LimitedConspiratorsKnowledge && len(g.players) >= 9 && len(conspirators) >= 3 {
			myIndex := 0
			for i, c := range conspirators {
				if c.ID == p.ID {
					myIndex = i
					break
				}
			}
			ally := conspirators[(myIndex+1)%len(conspirators)]
			if ally.ID != p.ID {
				known = append(known, knownEntry(ally))
			}
		} else {
			for _, c := range conspirators {
				if c.ID != p.ID {
					known = append(known, knownEntry(c))
				}
			}
		}

		if g.settings.ConspiratorsKnowUsurper {
			for _, u := range g.playersWithRole(RoleUsurper) {
				known = append(known, knownEntry(u))
			}
		}

	case RoleUsurper:
		if g.settings.UsurperKnowsAllies {
			for _, c := range g.playersWithRole(RoleConspirator) {
				known = append(known, knownEntry(c))
			}
		}
	}

	return known
}

// playersWithRole 依順位序回傳指定身份的玩家
func (g *Game) playersWithRole(role Role) []*Player {
	result := make([]*Player, 0, len(g.players))
	for _, id := range g.orderedIDs() {
		if p := g.players[id]; p != nil && p.Role == role {
			result = append(result, p)
		}
	}
	return result
}

func knownEntry(p *Player) KnownPlayer {
	return KnownPlayer{ID: p.ID, Name: p.Name, Role: p.Role, Faction: p.Faction}
}
