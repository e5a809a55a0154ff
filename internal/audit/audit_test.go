package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor_SaveJSON(t *testing.T) {
	dir := t.TempDir()
	auditor := NewAuditor(dir)

	event := Event{
		Kind:       "ban_enforced",
		UserID:     7,
		OccurredAt: time.Now(),
	}

	filename, err := auditor.SaveJSON(event)
	require.NoError(t, err)
	assert.True(t, filepath.Ext(filename) == ".json")

	data, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ban_enforced", got.Kind)
	assert.Equal(t, uint(7), got.UserID)
}

func TestAuditor_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audit")
	auditor := NewAuditor(dir)

	_, err := auditor.SaveJSON(Event{Kind: "warning_acknowledged", UserID: 3})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
