package store

// Pure operations over the state document. Every operation takes the current
// document by value and returns the next document; callers adopt the result
// through Store.Apply. Operations that cannot apply (no active game, unknown
// id) return the input unchanged.

// ActiveGame returns the currently selected game, if any.
func ActiveGame(s AppState) (Game, bool) {
	if s.ActiveGameID == "" {
		return Game{}, false
	}
	for _, g := range s.Games {
		if g.ID == s.ActiveGameID {
			return g, true
		}
	}
	return Game{}, false
}

// withActiveGame clones the document and applies fn to the active game in the
// clone. Returns the input unchanged when no game is active.
func withActiveGame(s AppState, fn func(*Game)) AppState {
	if _, ok := ActiveGame(s); !ok {
		return s
	}
	next := s.Clone()
	for i := range next.Games {
		if next.Games[i].ID == next.ActiveGameID {
			fn(&next.Games[i])
			break
		}
	}
	return next
}

// AddPlayer appends a new player with the empty sheet template to the active
// game.
func AddPlayer(s AppState, name string) AppState {
	return withActiveGame(s, func(g *Game) {
		g.Players = append(g.Players, NewPlayer(name))
	})
}

// UpdatePlayer replaces the player with a matching id in the active game.
// Unknown ids leave the document unchanged.
func UpdatePlayer(s AppState, p Player) AppState {
	return withActiveGame(s, func(g *Game) {
		for i := range g.Players {
			if g.Players[i].ID == p.ID {
				g.Players[i] = p.Clone()
				return
			}
		}
	})
}

// UpdateWorld replaces the active game's world wholesale.
func UpdateWorld(s AppState, w World) AppState {
	return withActiveGame(s, func(g *Game) {
		g.World = w.Clone()
	})
}

// SwitchGame changes the active game. Switching to the already-active game or
// to an unknown id is a no-op.
func SwitchGame(s AppState, gameID string) AppState {
	if gameID == s.ActiveGameID {
		return s
	}
	found := false
	for _, g := range s.Games {
		if g.ID == gameID {
			found = true
			break
		}
	}
	if !found {
		return s
	}
	next := s.Clone()
	next.ActiveGameID = gameID
	return next
}

// CreateGame appends a new game with the given world and makes it active.
// Returns the next document and the created game.
func CreateGame(s AppState, name string, world World) (AppState, Game) {
	g := NewGame(name, world.Clone())
	next := s.Clone()
	next.Games = append(next.Games, g)
	next.ActiveGameID = g.ID
	return next, g
}

// SetNPCImage updates one NPC's image reference in the active game's world.
// It touches nothing else, so it composes safely with concurrent world edits.
func SetNPCImage(s AppState, npcID, image string) AppState {
	return withActiveGame(s, func(g *Game) {
		for i := range g.World.NPCs {
			if g.World.NPCs[i].ID == npcID {
				g.World.NPCs[i].Image = image
				return
			}
		}
	})
}

// CommitTurn prepends a turn to the player's history in the active game, so
// histories read most-recent-first.
func CommitTurn(s AppState, playerID string, t Turn) AppState {
	return withActiveGame(s, func(g *Game) {
		for i := range g.Players {
			if g.Players[i].ID == playerID {
				g.Players[i].TurnHistory = append([]Turn{t}, g.Players[i].TurnHistory...)
				return
			}
		}
	})
}
