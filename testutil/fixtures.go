package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Records in the shape the browser version of the app persisted: numeric
// turn and archive ids, no session id on the active record.
const (
	LegacyActiveSessionJSON = `{"messages":[` +
		`{"id":"1710081000000","role":"model","text":"Namastê. Que você encontre a paz interior.","timestamp":"2024-03-10T14:30:00.000Z"},` +
		`{"id":"1710081060000","role":"user","text":"Como lidar com a ansiedade?","timestamp":"2024-03-10T14:31:00.000Z"},` +
		`{"id":"1710081061000","role":"model","text":"Observe a respiração.","timestamp":"2024-03-10T14:31:01.000Z"}` +
		`],"religion":"Budismo"}`

	LegacyChatHistoryJSON = `[` +
		`{"id":"1710000000000","title":"Qual é o meu propósito na vi","date":"2024-03-09T16:00:00.000Z","preview":"Qual é o meu propósito na vida?...","religion":"Estoicismo (Filosofia)","messages":[` +
		`{"id":"1709999000000","role":"model","text":"Saudações. Busquemos a sabedoria e a serenidade.","timestamp":"2024-03-09T15:43:20.000Z"},` +
		`{"id":"1709999010000","role":"user","text":"Qual é o meu propósito na vida?","timestamp":"2024-03-09T15:43:30.000Z"},` +
		`{"id":"1709999011000","role":"model","text":"Viver de acordo com a natureza.","timestamp":"2024-03-09T15:43:31.000Z"}]},` +
		`{"id":"1709900000000","title":"Mensagem de voz","date":"2024-03-08T12:13:20.000Z","preview":"Mensagem de voz","religion":"Umbanda/Candomblé","messages":[` +
		`{"id":"1709899000000","role":"model","text":"Axé e saravá, filho(a) de fé.","timestamp":"2024-03-08T11:56:40.000Z"},` +
		`{"id":"1709899010000","role":"user","text":"","audio":"AAEC","mimeType":"audio/webm","timestamp":"2024-03-08T11:56:50.000Z"},` +
		`{"id":"1709899011000","role":"model","text":"Desculpe, houve uma desconexão espiritual momentânea. Por favor, tente novamente.","timestamp":"2024-03-08T11:56:51.000Z","isError":true}]}` +
		`]`
)

// CreateConfigFixture writes a config.yaml under dir and returns its path
func CreateConfigFixture(t *testing.T, dir, content string) string {
	t.Helper()
	return WriteFile(t, dir, "config.yaml", []byte(content))
}

// CreateDataDir creates an empty data directory and points the app at it
func CreateDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(CreateTempDir(t), ".fale-com-deus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create data dir: %v", err)
	}
	t.Setenv("FALE_COM_DEUS_HOME", dir)
	return dir
}
