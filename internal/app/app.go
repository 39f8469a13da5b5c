// Package app wires the stores, the generation gateway and the blob registry
// into the operations the view layer calls. It owns the one piece of state
// that is not part of the durable document: which player is selected.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lorehold/gmassist/internal/config"
	"github.com/lorehold/gmassist/internal/store"
	"github.com/lorehold/gmassist/pkg/blob"
	"github.com/lorehold/gmassist/pkg/gateway"
	"github.com/lorehold/gmassist/pkg/logstore"
	"github.com/lorehold/gmassist/pkg/transfer"
)

// generator is the slice of the gateway the app calls; tests inject fakes.
type generator interface {
	NarrateTurn(ctx context.Context, w store.World, playerState, action string) string
	GenerateHooks(ctx context.Context, w store.World) []string
	GenerateEntities(ctx context.Context, w store.World, kind store.Kind) ([]gateway.EntityDraft, error)
	SynthesizeLore(ctx context.Context, files []gateway.LoreFile) (string, error)
	GeneratePortrait(ctx context.Context, npc store.NPC) (gateway.Image, error)
}

// App is the application core behind the view layer.
type App struct {
	logger *zap.Logger
	docs   store.Docs
	store  *store.Store
	log    *logstore.Log
	gen    generator
	blobs  *blob.Registry

	mu               sync.Mutex
	selectedPlayerID string

	portraitLocks sync.Map // npc id -> *sync.Mutex
}

// New builds the full application: document storage at cfg.DBPath, state
// store, log store, and the generation gateway.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	docs, err := store.OpenDocs(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("app: open storage: %w", err)
	}

	gen, err := gateway.New(ctx, gateway.Config{
		APIKey:     cfg.GeminiAPIKey,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
	}, logger)
	if err != nil {
		docs.Close()
		return nil, err
	}

	a := &App{
		logger: logger,
		docs:   docs,
		store:  store.NewStore(docs, logger),
		log:    logstore.New(docs, logger),
		gen:    gen,
		blobs:  blob.NewRegistry(),
	}
	a.store.Load()
	return a, nil
}

// Close releases storage and the gateway client.
func (a *App) Close() error {
	if closer, ok := a.gen.(interface{ Close() error }); ok {
		closer.Close()
	}
	return a.docs.Close()
}

// Store exposes the state store for subscriptions.
func (a *App) Store() *store.Store { return a.store }

// Log exposes the log store for subscriptions and the log panel.
func (a *App) Log() *logstore.Log { return a.log }

// State returns the current state document.
func (a *App) State() store.AppState { return a.store.State() }

// SelectedPlayerID returns the selected player, or empty when none is.
func (a *App) SelectedPlayerID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedPlayerID
}

// SelectPlayer selects a player of the active game.
func (a *App) SelectPlayer(playerID string) error {
	if _, err := a.activePlayer(playerID); err != nil {
		return err
	}
	a.mu.Lock()
	a.selectedPlayerID = playerID
	a.mu.Unlock()
	return nil
}

func (a *App) clearSelection() {
	a.mu.Lock()
	a.selectedPlayerID = ""
	a.mu.Unlock()
}

func (a *App) activeWorld() (store.World, error) {
	g, ok := store.ActiveGame(a.store.State())
	if !ok {
		return store.World{}, fmt.Errorf("app: no active game")
	}
	return g.World, nil
}

func (a *App) activePlayer(playerID string) (store.Player, error) {
	g, ok := store.ActiveGame(a.store.State())
	if !ok {
		return store.Player{}, fmt.Errorf("app: no active game")
	}
	for _, p := range g.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return store.Player{}, fmt.Errorf("app: player %q not in active game", playerID)
}

// AddPlayer adds a player to the active game.
func (a *App) AddPlayer(name string) error {
	if _, ok := store.ActiveGame(a.store.State()); !ok {
		return fmt.Errorf("app: no active game")
	}
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.AddPlayer(s, name)
	})
	a.log.Info(fmt.Sprintf("Player %q added.", name), nil)
	return nil
}

// UpdatePlayer replaces a player record, typically after a sheet edit.
func (a *App) UpdatePlayer(p store.Player) error {
	if _, err := a.activePlayer(p.ID); err != nil {
		return err
	}
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.UpdatePlayer(s, p)
	})
	return nil
}

// UpdateWorld replaces the active game's world after a manual edit.
func (a *App) UpdateWorld(w store.World) error {
	if _, ok := store.ActiveGame(a.store.State()); !ok {
		return fmt.Errorf("app: no active game")
	}
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.UpdateWorld(s, w)
	})
	return nil
}

// SwitchGame activates another game and clears the player selection.
func (a *App) SwitchGame(gameID string) {
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.SwitchGame(s, gameID)
	})
	a.clearSelection()
}

// ProcessTurn narrates a player action and commits the turn. Narration never
// fails: on gateway trouble the fixed fallback text becomes the response and
// the turn is committed like any other.
func (a *App) ProcessTurn(ctx context.Context, playerID, action string) (store.Turn, error) {
	player, err := a.activePlayer(playerID)
	if err != nil {
		return store.Turn{}, err
	}
	world, err := a.activeWorld()
	if err != nil {
		return store.Turn{}, err
	}

	response := a.gen.NarrateTurn(ctx, world, player.CharacterSheet, action)
	turn := store.NewTurn(action, response)
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.CommitTurn(s, playerID, turn)
	})
	a.log.Info(fmt.Sprintf("Turn processed for %s.", player.Name), map[string]string{
		"playerId": playerID,
		"action":   action,
	})
	return turn, nil
}

// GenerateHooks produces adventure hooks for the active world. Failures
// degrade inside the gateway to a fixed fallback hook.
func (a *App) GenerateHooks(ctx context.Context) ([]string, error) {
	world, err := a.activeWorld()
	if err != nil {
		return nil, err
	}
	hooks := a.gen.GenerateHooks(ctx, world)
	a.log.Info("Adventure hooks generated.", map[string]int{"count": len(hooks)})
	return hooks, nil
}

// GenerateEntities asks the gateway for new entities of one kind and merges
// them into the active world. Returns how many were merged.
func (a *App) GenerateEntities(ctx context.Context, kind store.Kind, targetLocationID string) (int, error) {
	world, err := a.activeWorld()
	if err != nil {
		return 0, err
	}
	drafts, err := a.gen.GenerateEntities(ctx, world, kind)
	if err != nil {
		a.log.Error(fmt.Sprintf("Failed to generate %ss.", kind), map[string]string{"error": err.Error()})
		return 0, err
	}
	a.mergeDrafts(kind, targetLocationID, toTransferDrafts(drafts))
	a.log.Info(fmt.Sprintf("Generated %d new %ss.", len(drafts), kind), nil)
	return len(drafts), nil
}

func toTransferDrafts(drafts []gateway.EntityDraft) []transfer.Draft {
	out := make([]transfer.Draft, len(drafts))
	for i, d := range drafts {
		out[i] = transfer.Draft{Name: d.Name, Title: d.Title, Description: d.Description}
	}
	return out
}

func (a *App) mergeDrafts(kind store.Kind, targetLocationID string, drafts []transfer.Draft) {
	a.store.Apply(func(s store.AppState) store.AppState {
		g, ok := store.ActiveGame(s)
		if !ok {
			return s
		}
		merged := transfer.MergeEntities(g.World, kind, targetLocationID, drafts)
		return store.UpdateWorld(s, merged)
	})
}

// GeneratePortrait generates and stores a portrait for one NPC, replacing any
// previous one. Requests for the same NPC are serialized; distinct NPCs
// proceed in parallel.
func (a *App) GeneratePortrait(ctx context.Context, npcID string) (string, error) {
	lockIface, _ := a.portraitLocks.LoadOrStore(npcID, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	world, err := a.activeWorld()
	if err != nil {
		return "", err
	}
	var npc store.NPC
	found := false
	for _, n := range world.NPCs {
		if n.ID == npcID {
			npc, found = n, true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("app: NPC %q not in active game", npcID)
	}

	img, err := a.gen.GeneratePortrait(ctx, npc)
	if err != nil {
		a.log.Error(fmt.Sprintf("Portrait generation failed for %s.", npc.Name), map[string]string{"error": err.Error()})
		return "", err
	}

	if blob.IsHandle(npc.Image) {
		a.blobs.Remove(npc.Image)
	}
	handle := a.blobs.Put(img.MIMEType, img.Data)
	a.store.Apply(func(s store.AppState) store.AppState {
		return store.SetNPCImage(s, npcID, handle)
	})
	a.log.Info(fmt.Sprintf("Portrait generated for %s.", npc.Name), nil)
	return handle, nil
}

// CreateGame creates and activates a new game. When lore files are given,
// their synthesis becomes the world lore; a synthesis failure substitutes the
// fallback lore instead of failing the creation.
func (a *App) CreateGame(ctx context.Context, name string, loreFiles []gateway.LoreFile) (store.Game, error) {
	lore := ""
	if len(loreFiles) > 0 {
		synthesized, err := a.gen.SynthesizeLore(ctx, loreFiles)
		if err != nil {
			a.log.Warn("Lore synthesis failed; starting with placeholder lore.", map[string]string{"error": err.Error()})
			lore = gateway.FallbackLore
		} else {
			lore = synthesized
		}
	}

	world := store.World{
		Lore:      lore,
		NPCs:      []store.NPC{},
		Locations: []store.Location{},
		Quests:    []store.Quest{},
	}
	var created store.Game
	a.store.Apply(func(s store.AppState) store.AppState {
		next, g := store.CreateGame(s, name, world)
		created = g
		return next
	})
	a.clearSelection()
	a.log.Info(fmt.Sprintf("Game %q created.", name), nil)
	return created, nil
}

// ImportEntityFiles parses uploaded entity files and merges the valid drafts
// into the active world. Files that fail to parse are reported together; the
// rest of the batch still lands.
func (a *App) ImportEntityFiles(files []transfer.File, kind store.Kind, targetLocationID string) (int, error) {
	if _, ok := store.ActiveGame(a.store.State()); !ok {
		return 0, fmt.Errorf("app: no active game")
	}
	drafts, err := transfer.ParseEntityBatch(files, kind)
	if err != nil {
		a.log.Error("Some entity files could not be imported.", map[string]string{"error": err.Error()})
	}
	if len(drafts) > 0 {
		a.mergeDrafts(kind, targetLocationID, drafts)
		a.log.Info(fmt.Sprintf("Imported %d %ss.", len(drafts), kind), nil)
	}
	return len(drafts), err
}

// ExportSession serializes the whole session for download.
func (a *App) ExportSession(now time.Time) (string, []byte, error) {
	s := a.store.State()
	data, err := transfer.Export(s, a.blobs)
	if err != nil {
		a.log.Error("Session export failed.", map[string]string{"error": err.Error()})
		return "", nil, err
	}
	filename := transfer.ExportFilename(s, now)
	a.log.Info("Session exported.", map[string]string{"filename": filename})
	return filename, data, nil
}

// ImportSession replaces the whole session with an exported document. The
// current state is untouched when validation fails.
func (a *App) ImportSession(data []byte) error {
	s, err := transfer.Import(data)
	if err != nil {
		a.log.Error("Session import failed.", map[string]string{"error": err.Error()})
		return err
	}
	a.store.Replace(s)
	a.clearSelection()
	a.log.Info("Session imported.", map[string]int{"games": len(s.Games)})
	return nil
}

// ClearLogs empties the log store.
func (a *App) ClearLogs() {
	a.log.Clear()
}
