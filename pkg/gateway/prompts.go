package gateway

import (
	"fmt"
	"strings"

	"github.com/lorehold/gmassist/internal/store"
)

// SerializeContext renders a world as the textual context block every prompt
// embeds. The lore section is always present; the NPC, location and quest
// sections are omitted when their collections are empty, and the quest
// section lists active quests only.
func SerializeContext(w store.World) string {
	var sb strings.Builder
	sb.WriteString("--- GAME WORLD LORE ---\n")
	sb.WriteString(w.Lore)
	sb.WriteString("\n\n")

	if len(w.NPCs) > 0 {
		sb.WriteString("--- KEY NPCs ---\n")
		for _, npc := range w.NPCs {
			fmt.Fprintf(&sb, "- %s: %s\n", npc.Name, npc.Description)
		}
		sb.WriteString("\n")
	}

	if len(w.Locations) > 0 {
		sb.WriteString("--- KEY LOCATIONS ---\n")
		for _, loc := range w.Locations {
			fmt.Fprintf(&sb, "- %s: %s\n", loc.Name, loc.Description)
		}
		sb.WriteString("\n")
	}

	if len(w.Quests) > 0 {
		sb.WriteString("--- ACTIVE QUESTS ---\n")
		for _, q := range w.Quests {
			if q.Status != store.QuestActive {
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s\n", q.Title, q.Description)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func turnPrompt(w store.World, playerState, action string) string {
	return fmt.Sprintf(`
You are a master storyteller and Game Master for a Play-by-Mail fantasy roleplaying game.
Your task is to interpret a player's action and describe the outcome in a compelling and narrative way.
The response should be consistent with the established game world and the specific character's situation.
Be fair, but also create challenges and opportunities for the player. End your response at a natural point, prompting the player for their next action without explicitly asking "What do you do?".

Crucially, if the action requires a skill check, dice roll, or causes a change in resources (like health, gold, or items), you MUST include it in a structured format within your narrative. Use the format [ROLL: description] for dice rolls and [UPDATE: resource change] for resource updates.

Example: "You attempt to sneak past the guard. [ROLL: Stealth check DC 15]. As you move, you knock over a vase. The guard turns, shouting, 'Who's there?!'"
Example: "You buy the potion from the merchant. [UPDATE: Gold -10]. The vial feels cool in your hand."

Your response should be in markdown format.

%s
--- PLAYER CHARACTER SHEET & SITUATION ---
%s

--- PLAYER'S ACTION ---
%s

--- NARRATIVE OUTCOME ---
`, SerializeContext(w), playerState, action)
}

func hooksPrompt(w store.World) string {
	return fmt.Sprintf(`
You are a creative D&D Dungeon Master. Based on the provided game world state, generate 3-5 interesting and varied adventure hooks for the players.
Each hook should be a short paragraph that presents a clear call to action, a mystery, or a problem.
The hooks should feel grounded in the world's lore, characters, and locations.
Return the hooks as a JSON array of strings.

Example format:
["A frantic merchant bursts into the tavern, claiming a family heirloom was stolen by a creature from the nearby woods.", "A strange, glowing plant has been discovered, and the local alchemist is offering a reward for a live sample."]

%s
--- ADVENTURE HOOKS (JSON Array) ---
`, SerializeContext(w))
}

func entityPrompt(w store.World, kind store.Kind) string {
	var task, heading string
	switch kind {
	case store.KindNPC:
		task = "generate 2-3 new, interesting Non-Player Characters (NPCs). They should feel grounded in the world's lore"
		heading = "NPCS"
	case store.KindLocation:
		task = "generate 2-3 new, interesting locations. They should feel grounded in the world's lore"
		heading = "LOCATIONS"
	case store.KindQuest:
		task = "generate 2-3 new, interesting quests. They should feel grounded in the world's lore and current plot points"
		heading = "QUESTS"
	}
	return fmt.Sprintf(`
You are a creative D&D Dungeon Master. Based on the provided game world state, %s.
The output MUST be a JSON array of objects. Do not include markdown formatting.

%s
--- NEW %s (JSON Array) ---
`, task, SerializeContext(w), heading)
}

const lorePrompt = `You are a world-building assistant for a fantasy roleplaying game. The user has uploaded the following files containing notes, images, and documents about their world.
Synthesize all of this information into a cohesive and well-structured "World Lore" document.
This document should serve as the foundational context for a new game campaign.
Structure it with clear headings for different sections like History, Key Factions, Important Locations, and Major Plot Points.
The tone should be evocative and engaging, suitable for a fantasy setting.
Extract key information and present it clearly. If there are inconsistencies, try to merge them logically or present them as 'conflicting historical accounts'.`

func portraitPrompt(npc store.NPC) string {
	return fmt.Sprintf(`A detailed fantasy character portrait of %s, who is described as: %q. Epic, detailed, fantasy art style, vibrant colors. No text or watermarks.`,
		npc.Name, npc.Description)
}
