package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/niklata/ncrond/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistory_WellFormedLines(t *testing.T) {
	src := "1=1000:2|900\n7=1500:4|1440\n"
	records, err := ParseHistory(newTempFile(t, src))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, HistoryRecord{ID: 7, ExecTime: 1500, NumRuns: 4, LastTime: 1440}, records[1])
}

func TestParseHistory_MalformedLinesSkipped(t *testing.T) {
	src := "not-a-record\n1=1000:2|900\n2=bad:x|y\n"
	records, err := ParseHistory(newTempFile(t, src))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ID)
}

func TestParseHistoryFile_MissingFileIsNotError(t *testing.T) {
	records, err := ParseHistoryFile(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestApplyHistory_Recovery(t *testing.T) {
	// "7=1500:4|1440" overlaid onto a fresh job with interval=60.
	j := core.NewJob(7)
	j.Command = "/bin/x"
	j.Interval = 60 * time.Second

	ApplyHistory([]*core.Job{j}, []HistoryRecord{{ID: 7, ExecTime: 1500, NumRuns: 4, LastTime: 1440}})

	assert.Equal(t, uint64(4), j.NumRuns)
	assert.Equal(t, int64(1440), j.LastTime)
	assert.Equal(t, int64(1500), j.ExecTime)

	require.NoError(t, j.SetInitialExecTime(time.Unix(1000, 0)))
	assert.GreaterOrEqual(t, j.ExecTime, int64(1500))
}

func TestApplyHistory_RunAtJobKeepsOwnExecTime(t *testing.T) {
	j := core.NewJob(4)
	j.RunAt = true
	j.ExecTime = 1700000000

	ApplyHistory([]*core.Job{j}, []HistoryRecord{{ID: 4, ExecTime: 1, NumRuns: 1, LastTime: 1}})

	assert.Equal(t, int64(1700000000), j.ExecTime, "runat exectime must not be overwritten by history")
	assert.Equal(t, uint64(1), j.NumRuns)
}

func TestApplyHistory_UnmatchedJobUntouched(t *testing.T) {
	j := core.NewJob(99)
	j.ExecTime = 42

	ApplyHistory([]*core.Job{j}, []HistoryRecord{{ID: 1, ExecTime: 1, NumRuns: 1, LastTime: 1}})

	assert.Equal(t, int64(42), j.ExecTime)
}

func TestHistoryStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history")
	store := NewHistoryStore(path)

	live := []*core.Job{{ID: 1, ExecTime: 1000, NumRuns: 1, LastTime: 900}}
	dead := []*core.Job{{ID: 2, ExecTime: 0, NumRuns: 3, LastTime: 800}}

	require.NoError(t, store.Save(live, dead))

	records, err := ParseHistoryFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, HistoryRecord{ID: 1, ExecTime: 1000, NumRuns: 1, LastTime: 900}, records[0])
	assert.Equal(t, HistoryRecord{ID: 2, ExecTime: 0, NumRuns: 3, LastTime: 800}, records[1])

	// the sibling temp file must not survive a successful save.
	_, err = os.Stat(path + "~")
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryStore_SaveOverwritesPriorContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history")
	require.NoError(t, os.WriteFile(path, []byte("99=1:1|1\n"), 0o600))

	store := NewHistoryStore(path)
	require.NoError(t, store.Save([]*core.Job{{ID: 1, ExecTime: 5, NumRuns: 1, LastTime: 4}}, nil))

	records, err := ParseHistoryFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ID)
}

func TestEnsureWritable_CreatableDirSucceeds(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, EnsureWritable(filepath.Join(dir, "history")))
}

func TestEnsureWritable_UnwritableDirFails(t *testing.T) {
	assert.Error(t, EnsureWritable("/nonexistent-root-only-path/history"))
}

func newTempFile(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
