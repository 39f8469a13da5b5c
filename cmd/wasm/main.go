//go:build js && wasm

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"syscall/js"
	"time"

	"go.uber.org/zap"

	"github.com/lorehold/gmassist/internal/app"
	"github.com/lorehold/gmassist/internal/config"
	"github.com/lorehold/gmassist/internal/store"
	"github.com/lorehold/gmassist/pkg/gateway"
	"github.com/lorehold/gmassist/pkg/logstore"
	"github.com/lorehold/gmassist/pkg/narrative"
	"github.com/lorehold/gmassist/pkg/transfer"
)

const Version = "1.0.0"

var core *app.App

func main() {
	fmt.Println("[GMAssist] WASM Ready v" + Version)

	js.Global().Set("GMAssist", js.ValueOf(map[string]interface{}{
		"version":    js.FuncOf(getVersion),
		"initialize": js.FuncOf(initialize),
		// State
		"getState":          js.FuncOf(getState),
		"subscribeState":    js.FuncOf(subscribeState),
		"selectPlayer":      js.FuncOf(selectPlayer),
		"getSelectedPlayer": js.FuncOf(getSelectedPlayer),
		"addPlayer":         js.FuncOf(addPlayer),
		"updatePlayer":      js.FuncOf(updatePlayer),
		"updateWorld":       js.FuncOf(updateWorld),
		"switchGame":        js.FuncOf(switchGame),
		// Generation
		"createGame":       js.FuncOf(createGame),
		"processTurn":      js.FuncOf(processTurn),
		"generateHooks":    js.FuncOf(generateHooks),
		"generateEntities": js.FuncOf(generateEntities),
		"generatePortrait": js.FuncOf(generatePortrait),
		// Narrative scanning
		"scanNarrative": js.FuncOf(scanNarrative),
		// Transfer
		"importEntities": js.FuncOf(importEntities),
		"exportSession":  js.FuncOf(exportSession),
		"importSession":  js.FuncOf(importSession),
		// Logs
		"getLogs":       js.FuncOf(getLogs),
		"subscribeLogs": js.FuncOf(subscribeLogs),
		"clearLogs":     js.FuncOf(clearLogs),
	}))

	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// initialize: [configJSON] with apiKey, textModel, imageModel, dbPath.
// Unset fields fall back to the defaults.
func initialize(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("initialize: config JSON required")
	}
	var in struct {
		APIKey     string `json:"apiKey"`
		TextModel  string `json:"textModel"`
		ImageModel string `json:"imageModel"`
		DBPath     string `json:"dbPath"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &in); err != nil {
		return errorResult("initialize: invalid config: " + err.Error())
	}

	cfg := config.Config{
		GeminiAPIKey: in.APIKey,
		TextModel:    in.TextModel,
		ImageModel:   in.ImageModel,
		DBPath:       in.DBPath,
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "file:gmassist.db"
	}

	logger, _ := zap.NewProduction()
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return errorResult("initialize: " + err.Error())
	}
	core = a
	return successResult("initialized")
}

func getState(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	data, err := store.EncodeState(core.State())
	if err != nil {
		return errorResult(err.Error())
	}
	return string(data)
}

// subscribeState: [callback] — callback receives the state JSON after every
// adopted document. Returns the subscription id.
func subscribeState(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("subscribeState: callback required")
	}
	callback := args[0]
	id := core.Store().Subscribe(func(s store.AppState) {
		data, err := store.EncodeState(s)
		if err != nil {
			return
		}
		callback.Invoke(string(data))
	})
	return id
}

func selectPlayer(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("selectPlayer: player id required")
	}
	if err := core.SelectPlayer(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("selected")
}

func getSelectedPlayer(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	return core.SelectedPlayerID()
}

func addPlayer(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("addPlayer: name required")
	}
	if err := core.AddPlayer(args[0].String()); err != nil {
		return errorResult(err.Error())
	}
	return successResult("added")
}

func updatePlayer(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("updatePlayer: player JSON required")
	}
	var p store.Player
	if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
		return errorResult("updatePlayer: invalid player: " + err.Error())
	}
	if err := core.UpdatePlayer(p); err != nil {
		return errorResult(err.Error())
	}
	return successResult("updated")
}

func updateWorld(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("updateWorld: world JSON required")
	}
	var w store.World
	if err := json.Unmarshal([]byte(args[0].String()), &w); err != nil {
		return errorResult("updateWorld: invalid world: " + err.Error())
	}
	if err := core.UpdateWorld(w); err != nil {
		return errorResult(err.Error())
	}
	return successResult("updated")
}

func switchGame(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("switchGame: game id required")
	}
	core.SwitchGame(args[0].String())
	return successResult("switched")
}

// createGame: [name, loreFilesJSON (optional)] — lore files are
// [{name, mimeType, dataBase64}]. Returns Promise<gameJSON>.
func createGame(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("createGame: name required")
	}
	name := args[0].String()

	var files []gateway.LoreFile
	if len(args) > 1 && !args[1].IsUndefined() && !args[1].IsNull() && args[1].String() != "" {
		var in []struct {
			Name       string `json:"name"`
			MIMEType   string `json:"mimeType"`
			DataBase64 string `json:"dataBase64"`
		}
		if err := json.Unmarshal([]byte(args[1].String()), &in); err != nil {
			return errorResult("createGame: invalid files: " + err.Error())
		}
		for _, f := range in {
			data, err := base64.StdEncoding.DecodeString(f.DataBase64)
			if err != nil {
				return errorResult("createGame: file " + f.Name + ": " + err.Error())
			}
			files = append(files, gateway.LoreFile{Name: f.Name, MIMEType: f.MIMEType, Data: data})
		}
	}

	promise, resolve, reject := makePromise()
	go func() {
		g, err := core.CreateGame(context.Background(), name, files)
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(err.Error()))
			return
		}
		data, _ := json.Marshal(g)
		resolve.Invoke(string(data))
	}()
	return promise
}

// processTurn: [playerId, action] — Returns Promise<turnJSON>.
func processTurn(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 2 {
		return errorResult("processTurn: player id and action required")
	}
	playerID := args[0].String()
	action := args[1].String()

	promise, resolve, reject := makePromise()
	go func() {
		turn, err := core.ProcessTurn(context.Background(), playerID, action)
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(err.Error()))
			return
		}
		data, _ := json.Marshal(turn)
		resolve.Invoke(string(data))
	}()
	return promise
}

// generateHooks: [] — Returns Promise<string[]>.
func generateHooks(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	promise, resolve, reject := makePromise()
	go func() {
		hooks, err := core.GenerateHooks(context.Background())
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(err.Error()))
			return
		}
		data, _ := json.Marshal(hooks)
		resolve.Invoke(string(data))
	}()
	return promise
}

// generateEntities: [kind, targetLocationId (optional)] — Returns
// Promise<count>.
func generateEntities(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("generateEntities: kind required")
	}
	kind := store.Kind(args[0].String())
	targetLocationID := ""
	if len(args) > 1 && !args[1].IsUndefined() && !args[1].IsNull() {
		targetLocationID = args[1].String()
	}

	promise, resolve, reject := makePromise()
	go func() {
		n, err := core.GenerateEntities(context.Background(), kind, targetLocationID)
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(err.Error()))
			return
		}
		resolve.Invoke(n)
	}()
	return promise
}

// generatePortrait: [npcId] — Returns Promise<dataURL>.
func generatePortrait(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("generatePortrait: npc id required")
	}
	npcID := args[0].String()

	promise, resolve, reject := makePromise()
	go func() {
		handle, err := core.GeneratePortrait(context.Background(), npcID)
		if err != nil {
			reject.Invoke(js.Global().Get("Error").New(err.Error()))
			return
		}
		resolve.Invoke(handle)
	}()
	return promise
}

// scanNarrative: [text] — returns mentions and annotations found in a
// narrative against the active world.
func scanNarrative(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("scanNarrative: text required")
	}
	text := args[0].String()

	g, ok := store.ActiveGame(core.State())
	if !ok {
		return errorResult("scanNarrative: no active game")
	}
	dict, err := narrative.CompileDictionary(g.World)
	if err != nil {
		return errorResult("scanNarrative: " + err.Error())
	}

	type mentionOut struct {
		EntityID string `json:"entityId"`
		Kind     string `json:"kind"`
		Start    int    `json:"start"`
		End      int    `json:"end"`
		Text     string `json:"text"`
	}
	type annotationOut struct {
		Kind  string `json:"kind"`
		Body  string `json:"body"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	}

	mentions := []mentionOut{}
	for _, m := range dict.Scan(text) {
		mentions = append(mentions, mentionOut{
			EntityID: m.EntityID, Kind: string(m.Kind),
			Start: m.Start, End: m.End, Text: m.Text,
		})
	}
	annotations := []annotationOut{}
	for _, a := range narrative.Annotations(text) {
		annotations = append(annotations, annotationOut{
			Kind: string(a.Kind), Body: a.Body, Start: a.Start, End: a.End,
		})
	}

	data, _ := json.Marshal(map[string]interface{}{
		"mentions":    mentions,
		"annotations": annotations,
	})
	return string(data)
}

// importEntities: [filesJSON, kind, targetLocationId (optional)] — files are
// [{name, content}]. Returns the merged count; partial failures carry both
// the count and an error message.
func importEntities(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 2 {
		return errorResult("importEntities: files JSON and kind required")
	}
	var in []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &in); err != nil {
		return errorResult("importEntities: invalid files: " + err.Error())
	}
	files := make([]transfer.File, len(in))
	for i, f := range in {
		files[i] = transfer.File{Name: f.Name, Data: []byte(f.Content)}
	}
	kind := store.Kind(args[1].String())
	targetLocationID := ""
	if len(args) > 2 && !args[2].IsUndefined() && !args[2].IsNull() {
		targetLocationID = args[2].String()
	}

	n, err := core.ImportEntityFiles(files, kind, targetLocationID)
	result := map[string]interface{}{"imported": n}
	if err != nil {
		result["error"] = err.Error()
	}
	data, _ := json.Marshal(result)
	return string(data)
}

// exportSession: [] — returns {filename, data}.
func exportSession(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	filename, data, err := core.ExportSession(time.Now())
	if err != nil {
		return errorResult(err.Error())
	}
	out, _ := json.Marshal(map[string]string{
		"filename": filename,
		"data":     string(data),
	})
	return string(out)
}

// importSession: [sessionJSON]
func importSession(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("importSession: session JSON required")
	}
	if err := core.ImportSession([]byte(args[0].String())); err != nil {
		return errorResult(err.Error())
	}
	return successResult("imported")
}

func getLogs(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	data, _ := json.Marshal(core.Log().Entries())
	return string(data)
}

// subscribeLogs: [callback] — callback receives the entries JSON after every
// recorded entry. Returns the subscription id.
func subscribeLogs(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	if len(args) < 1 {
		return errorResult("subscribeLogs: callback required")
	}
	callback := args[0]
	id := core.Log().Subscribe(func(entries []logstore.Entry) {
		data, err := json.Marshal(entries)
		if err != nil {
			return
		}
		callback.Invoke(string(data))
	})
	return id
}

func clearLogs(this js.Value, args []js.Value) interface{} {
	if core == nil {
		return errorResult("not initialized")
	}
	core.ClearLogs()
	return successResult("cleared")
}

// makePromise creates a JS Promise and returns it with its resolve/reject
// functions.
func makePromise() (promise js.Value, resolve js.Value, reject js.Value) {
	var resolveFn, rejectFn js.Value
	handler := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolveFn = args[0]
		rejectFn = args[1]
		return nil
	})
	defer handler.Release()

	promise = js.Global().Get("Promise").New(handler)
	return promise, resolveFn, rejectFn
}

func errorResult(msg string) interface{} {
	result := map[string]interface{}{"error": msg}
	data, _ := json.Marshal(result)
	return string(data)
}

func successResult(msg string) interface{} {
	result := map[string]interface{}{"success": msg}
	data, _ := json.Marshal(result)
	return string(data)
}
