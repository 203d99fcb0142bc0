package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		Command:    "approve",
		Action:     "approve_suggestions",
		Details:    "applied 25, skipped 5",
		Ledgers:    30,
		CommitHash: "abc1234",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testEntry(), entries[0])

	data, err := os.ReadFile(filepath.Join(dir, "logs", "activity.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), Header+"\n")
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	e2 := testEntry()
	e2.Command = "import"
	e2.Action = "merge_trial_balance"
	e2.Details = `updated 3, added 2, "Sales, Export" missing`
	require.NoError(t, Append(dir, e2))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "approve", entries[0].Command)
	assert.Equal(t, e2.Details, entries[1].Details, "commas and quotes survive")
}

func TestRead_Missing(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTail(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		e := testEntry()
		e.Ledgers = i
		require.NoError(t, Append(dir, e))
	}
	last, err := Tail(dir, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 3, last[0].Ledgers)
	assert.Equal(t, 4, last[1].Ledgers)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"a"})
	assert.Error(t, err)
	_, err = UnmarshalEntry([]string{"yesterday", "", "", "", "", ""})
	assert.Error(t, err)
	_, err = UnmarshalEntry([]string{testTime.Format(time.RFC3339), "", "", "", "many", ""})
	assert.Error(t, err)
}
