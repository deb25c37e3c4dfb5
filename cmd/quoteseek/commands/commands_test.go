package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/store"
	"github.com/54b3r/quoteseek/internal/verify"
)

func TestAskJob(t *testing.T) {
	started := time.Now().Add(-time.Second)
	quotes := []verify.Quote{{Text: "a"}}

	ok := askJob("q", 15, started, quotes, nil)
	assert.Equal(t, jobs.StatusComplete, ok.Status)
	assert.Equal(t, quotes, ok.Quotes)
	assert.NotEmpty(t, ok.ID)
	assert.GreaterOrEqual(t, ok.Duration(), time.Second)

	failed := askJob("q", 15, started, quotes, errors.New("no verified quotes found"))
	assert.Equal(t, jobs.StatusError, failed.Status)
	assert.Equal(t, "no verified quotes found", failed.Error)
	assert.Nil(t, failed.Quotes)
}

func TestHistoryCmd_PrintsRecentEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("QUOTESEEK_HISTORY_DB", dbPath)

	ql, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := t.Context()
	now := time.Now()
	require.NoError(t, ql.Record(ctx, askJob("what is faith?", 15, now, []verify.Quote{{}, {}}, nil)))
	require.NoError(t, ql.Record(ctx, askJob(strings.Repeat("long question ", 10), 5, now.Add(time.Second), nil, errors.New("no relevant paragraphs found"))))
	require.NoError(t, ql.Close())

	var out bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-n", "5"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	text := out.String()
	assert.Contains(t, text, "what is faith?")
	assert.Contains(t, text, "no relevant paragraphs found")
	assert.Contains(t, text, "...")
	assert.Contains(t, text, "2 queries: 1 complete, 1 failed")
	// Newest first.
	assert.Less(t, strings.Index(text, "long question"), strings.Index(text, "what is faith?"))
}

func TestHistoryCmd_Disabled(t *testing.T) {
	t.Setenv("QUOTESEEK_HISTORY_DB", historyDisabled)
	cmd := NewHistoryCmd()
	cmd.SetArgs(nil)
	err := cmd.ExecuteContext(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "quoteseek dev"))
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "history", "version"} {
		assert.True(t, names[want], want)
	}
}
