package corpus_test

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitas/taxpilot/corpus"
)

func TestSampleDocuments(t *testing.T) {
	docs := corpus.SampleDocuments()
	require.Len(t, docs, 6)

	seen := make(map[string]struct{})
	for _, doc := range docs {
		assert.NotEmpty(t, doc.ExternalID)
		assert.NotEmpty(t, doc.Text)
		_, dup := seen[doc.ExternalID]
		assert.False(t, dup, "duplicate external id %q", doc.ExternalID)
		seen[doc.ExternalID] = struct{}{}
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reform.txt"), []byte("Rates change in 2026."), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes", "cashback.md"), []byte("# Cashback\nFor low-income families."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.csv"), []byte("a,b,c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n"), 0o644))

	docs, err := corpus.LoadDirectory(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byID := make(map[string]string)
	for _, doc := range docs {
		byID[doc.ExternalID] = doc.Text
	}
	assert.Contains(t, byID["reform.txt"], "2026")
	assert.Contains(t, byID["notes/cashback.md"], "low-income")
}

func TestLoadDirectoryMissingDir(t *testing.T) {
	_, err := corpus.LoadDirectory(filepath.Join(t.TempDir(), "nope"), log.New(io.Discard, "", 0))
	assert.Error(t, err)
}

func TestLoadDirectorySkipsBrokenPDF(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("fine"), 0o644))

	docs, err := corpus.LoadDirectory(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok.txt", docs[0].ExternalID)
}
