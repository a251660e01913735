package internal

import (
	"time"
)

// TestEpoch is the fixed start time used by the test helpers
var TestEpoch = time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

// CreateTestTurns builds alternating user/model turns one second apart,
// starting with a user turn
func CreateTestTurns(start time.Time, texts ...string) []Turn {
	turns := make([]Turn, 0, len(texts))
	var ids TurnIDs
	for i, text := range texts {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		ts := start.Add(time.Duration(i) * time.Second)
		turns = append(turns, Turn{
			ID:        ids.Next(ts),
			Role:      role,
			Text:      text,
			Timestamp: ts,
		})
	}
	return turns
}

// CreateTestArchivedSession creates an archived session with a greeting
// followed by a short exchange
func CreateTestArchivedSession(id string, persona PersonaID) ArchivedSession {
	p := MustPersona(persona)
	greeting := Turn{
		ID:        "1710081000000",
		Role:      RoleModel,
		Text:      p.Greeting,
		Timestamp: TestEpoch,
	}
	turns := append([]Turn{greeting}, CreateTestTurns(TestEpoch.Add(time.Minute),
		"Sinto-me sozinho(a).",
		"Você não está só. Respire e observe.",
	)...)

	return ArchivedSession{
		ID:      id,
		Title:   "Sinto-me sozinho(a).",
		Date:    TestEpoch.Add(time.Hour),
		Preview: "Sinto-me sozinho(a)....",
		Persona: persona,
		Turns:   turns,
	}
}

// CreateTestConversation creates an active conversation holding only the
// persona greeting
func CreateTestConversation(persona PersonaID) *Conversation {
	p := MustPersona(persona)
	return &Conversation{
		Persona:   persona,
		SessionID: "conv-" + p.Key,
		Turns: []Turn{{
			ID:        "1710081000000",
			Role:      RoleModel,
			Text:      p.Greeting,
			Timestamp: TestEpoch,
		}},
	}
}
