package reasoner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unikrew/internal/domain"
	"unikrew/internal/port"
	"unikrew/internal/reasoner"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPromptStore_BuiltInDefaults(t *testing.T) {
	store, err := reasoner.NewPromptStore("")
	require.NoError(t, err)

	p := store.Get()
	assert.Contains(t, p.System, "receipt")
	assert.Contains(t, p.Human, "{ocr_text}")
	assert.Contains(t, p.Human, "{extracted_json}")
}

func TestPromptStore_DirectoryOverridesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "system_prompt.txt", "custom system")

	store, err := reasoner.NewPromptStore(dir)
	require.NoError(t, err)

	p := store.Get()
	assert.Equal(t, "custom system", p.System)
	assert.Contains(t, p.Human, "{ocr_text}")
}

func TestPromptStore_RejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "human_prompt.txt", "{receipt}")

	_, err := reasoner.NewPromptStore(dir)

	assert.ErrorIs(t, err, domain.ErrPromptTemplate)
}

func TestPromptStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "human_prompt.txt", "v1 {ocr_text}")
	store, err := reasoner.NewPromptStore(dir)
	require.NoError(t, err)

	writePrompt(t, dir, "human_prompt.txt", "v2 {broken")
	assert.Error(t, store.Reload())
	assert.Equal(t, "v1 {ocr_text}", store.Get().Human)

	writePrompt(t, dir, "human_prompt.txt", "v3 {extracted_json}")
	require.NoError(t, store.Reload())
	assert.Equal(t, "v3 {extracted_json}", store.Get().Human)
}

func TestPromptStore_Watch(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "system_prompt.txt", "v1")
	store, err := reasoner.NewPromptStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writePrompt(t, dir, "system_prompt.txt", "v2")

	assert.Eventually(t, func() bool {
		return store.Get().System == "v2"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPromptStore_WatchWithoutDir(t *testing.T) {
	store, err := reasoner.NewPromptStore("")
	require.NoError(t, err)

	assert.Error(t, store.Watch(context.Background()))
}

func TestBuildMessages(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "system_prompt.txt", "sys")
	writePrompt(t, dir, "human_prompt.txt", "text={ocr_text}\njson={extracted_json}")
	store, err := reasoner.NewPromptStore(dir)
	require.NoError(t, err)

	msgs, err := reasoner.BuildMessages(store, port.ReasonInput{
		OCRText:  "ACME 9.99",
		Entities: domain.Entities{Company: "ACME", Total: "9.99"},
	})

	require.NoError(t, err)
	assert.Equal(t, "sys", msgs.System)
	assert.Equal(t, "text=ACME 9.99\njson={\n  \"company\": \"ACME\",\n  \"date\": \"\",\n  \"address\": \"\",\n  \"total\": \"9.99\"\n}", msgs.User)
}

func TestBuildMessages_EntitiesKeepHTMLCharacters(t *testing.T) {
	store, err := reasoner.NewPromptStore("")
	require.NoError(t, err)

	msgs, err := reasoner.BuildMessages(store, port.ReasonInput{
		Entities: domain.Entities{Company: "A&W"},
	})

	require.NoError(t, err)
	assert.Contains(t, msgs.User, `"company": "A&W"`)
}
