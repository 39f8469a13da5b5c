// Package store holds the application state document and its durable storage.
// The state document is the single source of truth: every mutation computes a
// new document value, persists it, and notifies subscribers.
package store

import (
	"time"

	"github.com/google/uuid"
)

// QuestStatus is the lifecycle state of a quest.
type QuestStatus string

const (
	QuestActive    QuestStatus = "Active"
	QuestInactive  QuestStatus = "Inactive"
	QuestCompleted QuestStatus = "Completed"
)

// ValidQuestStatus reports whether s is a recognized quest status.
func ValidQuestStatus(s QuestStatus) bool {
	switch s {
	case QuestActive, QuestInactive, QuestCompleted:
		return true
	}
	return false
}

// Kind tags an entity collection of the world. Import and generation code
// switches on the tag; nothing probes field presence to guess a kind.
type Kind string

const (
	KindNPC      Kind = "NPC"
	KindLocation Kind = "Location"
	KindQuest    Kind = "Quest"
)

// Turn is one recorded player action and its generated narrative outcome.
// Response may embed [ROLL: ...] / [UPDATE: ...] markers; they are
// presentation hints only.
type Turn struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// Player holds a free-text character sheet and the turn history,
// most-recent-first.
type Player struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CharacterSheet string `json:"characterSheet"`
	TurnHistory    []Turn `json:"turnHistory"`
}

// NPC is a world character. LocationID is a weak reference: it may point at a
// deleted Location, and resolution degrades to unassigned rather than failing.
// Image holds either an inline data URL or a transient blob handle.
type NPC struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	LocationID  string `json:"locationId,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Location is a world place. Locations do not nest.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Quest is a world objective.
type Quest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      QuestStatus `json:"status"`
}

// World is the lore plus the NPC, Location and Quest collections of one Game.
// Collection order is insertion order and is display-significant.
type World struct {
	Lore      string     `json:"lore"`
	NPCs      []NPC      `json:"npcs"`
	Locations []Location `json:"locations"`
	Quests    []Quest    `json:"quests"`
}

// Game is a named campaign: one World plus its Players.
type Game struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	World   World    `json:"gameWorld"`
	Players []Player `json:"players"`
}

// AppState is the whole durable document: all Games plus which one is active.
// An empty ActiveGameID means no game is selected; that is a valid state.
type AppState struct {
	Games        []Game `json:"games"`
	ActiveGameID string `json:"activeGameId"`
}

// EmptySheet is the character-sheet template new players start with.
const EmptySheet = "Class: \nRace: \n\nInventory:\n\nBackstory:"

// UnassignedLocation is the display name for an NPC without a resolvable
// location.
const UnassignedLocation = "Unassigned"

// newID returns a process-unique id for an entity of the given prefix.
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewTurn creates a Turn stamped with the current UTC time.
func NewTurn(action, response string) Turn {
	return Turn{
		ID:        newID("turn"),
		Action:    action,
		Response:  response,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewPlayer creates a Player with the empty sheet template and no history.
func NewPlayer(name string) Player {
	return Player{
		ID:             newID("player"),
		Name:           name,
		CharacterSheet: EmptySheet,
		TurnHistory:    []Turn{},
	}
}

// NewNPC creates an NPC. locationID may be empty (unassigned) and is not
// validated here; dangling references are tolerated at resolution time.
func NewNPC(name, description, locationID string) NPC {
	return NPC{
		ID:          newID("npc"),
		Name:        name,
		Description: description,
		LocationID:  locationID,
	}
}

// NewLocation creates a Location.
func NewLocation(name, description string) Location {
	return Location{
		ID:          newID("loc"),
		Name:        name,
		Description: description,
	}
}

// NewQuest creates a Quest with status Active.
func NewQuest(title, description string) Quest {
	return Quest{
		ID:          newID("quest"),
		Title:       title,
		Description: description,
		Status:      QuestActive,
	}
}

// NewGame creates a Game with the given world and no players.
func NewGame(name string, world World) Game {
	return Game{
		ID:      newID("game"),
		Name:    name,
		World:   world,
		Players: []Player{},
	}
}

// LocationByID resolves a location id within the world.
func (w World) LocationByID(id string) (Location, bool) {
	for _, loc := range w.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// NPCLocationName resolves an NPC's location for display. Empty and dangling
// references both resolve to UnassignedLocation; location deletion never
// cascades into NPCs.
func (w World) NPCLocationName(n NPC) string {
	if n.LocationID == "" {
		return UnassignedLocation
	}
	loc, ok := w.LocationByID(n.LocationID)
	if !ok {
		return UnassignedLocation
	}
	return loc.Name
}

func cloneTurns(ts []Turn) []Turn {
	if ts == nil {
		return nil
	}
	out := make([]Turn, len(ts))
	copy(out, ts)
	return out
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	p.TurnHistory = cloneTurns(p.TurnHistory)
	return p
}

// Clone returns a deep copy of the world.
func (w World) Clone() World {
	out := w
	if w.NPCs != nil {
		out.NPCs = make([]NPC, len(w.NPCs))
		copy(out.NPCs, w.NPCs)
	}
	if w.Locations != nil {
		out.Locations = make([]Location, len(w.Locations))
		copy(out.Locations, w.Locations)
	}
	if w.Quests != nil {
		out.Quests = make([]Quest, len(w.Quests))
		copy(out.Quests, w.Quests)
	}
	return out
}

// Clone returns a deep copy of the game.
func (g Game) Clone() Game {
	out := g
	out.World = g.World.Clone()
	if g.Players != nil {
		out.Players = make([]Player, len(g.Players))
		for i, p := range g.Players {
			out.Players[i] = p.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the whole state document.
func (s AppState) Clone() AppState {
	out := s
	if s.Games != nil {
		out.Games = make([]Game, len(s.Games))
		for i, g := range s.Games {
			out.Games[i] = g.Clone()
		}
	}
	return out
}

// DefaultState is the seeded document used when no persisted state exists:
// one game set in Aerthos with the Oakhaven starting world and one player.
func DefaultState() AppState {
	world := World{
		Lore: "The world of Aerthos is recovering from the Sundering, a magical cataclysm " +
			"that shattered the continents a century ago. The central kingdom of Eldoria is a " +
			"beacon of stability, but its borders are threatened by the encroaching Gloomwood, " +
			"a forest corrupted by dark magic. Small pockets of civilization, called 'Freeholds', " +
			"dot the landscape, connected by treacherous trade routes. Magic is wild and " +
			"unpredictable, and ancient ruins from before the Sundering are rumored to hold " +
			"immense power and danger.\n\n" +
			"Current Major Plot Point: The players have just arrived in the Freehold of Oakhaven, " +
			"a small town on the edge of the Gloomwood. They've heard rumors of a lost artifact, " +
			"the Sunstone, which is said to be able to push back the forest's corruption.",
		NPCs: []NPC{
			{ID: "npc-1", Name: "Elara", Description: "The stoic mayor of Oakhaven and a former ranger. Knows the Gloomwood better than anyone.", LocationID: "loc-1"},
			{ID: "npc-2", Name: "Balthazar", Description: "Oakhaven's eccentric and reclusive alchemist. May have knowledge of the Sunstone.", LocationID: "loc-1"},
			{ID: "npc-3", Name: "Grak", Description: "The gruff but good-hearted blacksmith. A potential ally if his trust is earned.", LocationID: "loc-1"},
		},
		Locations: []Location{
			{ID: "loc-1", Name: "Oakhaven", Description: "A small Freehold on the edge of the Gloomwood. The starting location for the players."},
			{ID: "loc-2", Name: "The Gloomwood", Description: "A vast, dark forest corrupted by wild magic. Dangerous, but holds many secrets."},
			{ID: "loc-3", Name: "Eldoria", Description: "The central kingdom, a beacon of stability and civilization."},
		},
		Quests: []Quest{
			{ID: "quest-1", Title: "The Sunstone", Description: "Find the lost artifact known as the Sunstone to push back the Gloomwood's corruption.", Status: QuestActive},
		},
	}

	valerius := Player{
		ID:   "player-1",
		Name: "Valerius",
		CharacterSheet: "Class: Shadow Rogue\nRace: Elf\nLevel: 3\n\n" +
			"Appearance: Tall and slender with silver hair and piercing grey eyes. Wears dark, supple leather armor.\n\n" +
			"Inventory:\n- Set of masterwork lockpicks\n- Shortsword +1\n- Dagger of Venom\n- 3 health potions\n- 50 gold pieces\n\n" +
			"Skills: Stealth, Acrobatics, Deception\n\n" +
			"Backstory: An exile from a noble house, Valerius seeks to reclaim his honor by making a name for himself as an adventurer. He is secretive but loyal to his companions.",
		TurnHistory: []Turn{},
	}

	game := Game{
		ID:      "game-1",
		Name:    "Aerthos",
		World:   world,
		Players: []Player{valerius},
	}

	return AppState{
		Games:        []Game{game},
		ActiveGameID: game.ID,
	}
}
