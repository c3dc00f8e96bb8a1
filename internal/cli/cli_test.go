package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/batchq/internal/client"
	"github.com/RevCBH/batchq/internal/command"
	"github.com/RevCBH/batchq/internal/config"
	"github.com/RevCBH/batchq/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for the bus and poller goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func strPtr(s string) *string { return &s }

func newManager(t *testing.T) *testutil.FakeManager {
	t.Helper()
	m := testutil.NewFakeManager(t)
	m.AddQueue(client.Queue{Name: "a", Title: "Alpha", Enabled: true, ScheduleName: "nightly"})
	m.AddQueue(client.Queue{Name: "b", Title: "Beta", HostName: "worker1"})
	m.AddType(client.JobType{
		Name:  "echo",
		Title: "Echo job",
		Params: []client.ParamSpec{
			{Name: "msg", Type: client.ParamString, Title: "Message"},
			{Name: "count", Type: client.ParamInteger, Default: strPtr("1")},
		},
	})
	m.AddSchedule(`{"name":"nightly","hour":[2]}`)
	m.AddJob(client.Job{Type: "echo", Queue: "a", Params: map[string]string{"msg": "hi", "count": "2"}})
	m.AddJob(client.Job{Type: "echo", Queue: "a", Status: client.StatusDone, Params: map[string]string{"msg": "old", "count": "1"}})
	return m
}

func writeConfig(t *testing.T, password string) string {
	t.Helper()
	for _, env := range []string{config.EnvManagerURL, config.EnvUsername, config.EnvPassword, config.EnvLogLevel} {
		t.Setenv(env, "")
	}
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	content := "username: alice\npassword: " + password + "\npoll_interval: 20ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type result struct {
	out    string
	stderr string
	err    error
}

type runOptions struct {
	password string
	stdin    string
	timeout  time.Duration
}

func run(t *testing.T, m *testutil.FakeManager, opts runOptions, args ...string) result {
	t.Helper()
	if opts.password == "" {
		opts.password = "secret"
	}
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}

	app := New()
	app.notifySignals = false

	var out, stderr syncBuffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetErr(&stderr)
	app.rootCmd.SetIn(strings.NewReader(opts.stdin))
	app.rootCmd.SetArgs(append([]string{"--config", writeConfig(t, opts.password), "--url", m.URL()}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	err := app.rootCmd.ExecuteContext(ctx)
	return result{out: out.String(), stderr: stderr.String(), err: err}
}

func TestQueuesCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "queues")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "TITLE", "ENABLED", "SCHEDULE", "HOST"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"a", "Alpha", "yes", "nightly", "*"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "Beta", "no", "-", "worker1"}, strings.Fields(lines[2]))
}

func TestQueueCreateCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "queue", "create", "c", "--title", "Gamma", "--schedule", "nightly", "--disabled")
	require.NoError(t, res.err)
	assert.Equal(t, "Created queue c [ ] Gamma\n", res.out)

	q, ok := m.Queue("c")
	require.True(t, ok)
	assert.False(t, q.Enabled)
	assert.Equal(t, "nightly", q.ScheduleName)
}

func TestQueueCreateCmd_Duplicate(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "queue", "create", "a")
	var remote *client.RemoteError
	require.ErrorAs(t, res.err, &remote)
	assert.Equal(t, 409, remote.StatusCode)
}

func TestQueueEnableDisableCmd(t *testing.T) {
	m := newManager(t)

	res := run(t, m, runOptions{}, "queue", "disable", "a")
	require.NoError(t, res.err)
	assert.Equal(t, "Queue a disabled\n", res.out)
	q, _ := m.Queue("a")
	assert.False(t, q.Enabled)

	res = run(t, m, runOptions{}, "queue", "enable", "b")
	require.NoError(t, res.err)
	q, _ = m.Queue("b")
	assert.True(t, q.Enabled)
}

func TestTypesCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "types")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"echo", "Echo", "job", "msg", "string", "-"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"count", "integer", "1"}, strings.Fields(lines[2]))
}

func TestSchedulesCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "schedules")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "nightly")
	assert.Contains(t, res.out, `{"hour":[2]}`)
}

func TestJobsCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "jobs", "a")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"1", "Echo", "job", "new", "count=2", "msg=hi"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "Echo", "job", "done", "count=1", "msg=old"}, strings.Fields(lines[2]))
}

func TestJobsCmd_UnknownQueue(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "jobs", "nope")
	assert.ErrorIs(t, res.err, command.ErrUnknownQueue)
}

func TestJobShowCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "jobs", "show", "1")
	require.NoError(t, res.err)

	assert.Contains(t, res.out, "Job #1\n")
	assert.Contains(t, res.out, "Type:   Echo job (echo)\n")
	assert.Contains(t, res.out, "Status: new\n")
	assert.Contains(t, res.out, "Message:")
	assert.Contains(t, res.out, "count:")
}

func TestJobShowCmd_InvalidID(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "jobs", "show", "x")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `invalid job id "x"`)
}

func TestStatsCmd(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "stats", "a")
	require.NoError(t, res.err)

	assert.Contains(t, res.out, "[*] Alpha\n")
	assert.Contains(t, res.out, "  Schedule: nightly\n")
	assert.Contains(t, res.out, "  Host: *\n")
	assert.Contains(t, res.out, "  New/Processing/Done: 1 / 0 / 1\n")
	assert.Contains(t, res.out, "  Failed: 0\n")
	assert.Contains(t, res.out, "Refreshed ")
}

func TestEnqueueCmd_FillsDefaults(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "enqueue", "b", "echo", "-p", "msg=a=b")
	require.NoError(t, res.err)
	assert.Equal(t, "Enqueued job #3 (new) in b\n", res.out)

	jobs := m.Jobs("b")
	require.Len(t, jobs, 1)
	assert.Equal(t, map[string]string{"msg": "a=b", "count": "1"}, jobs[0].Params)
}

func TestEnqueueCmd_InvalidParamsAreNotSent(t *testing.T) {
	m := newManager(t)

	res := run(t, m, runOptions{}, "enqueue", "a", "echo", "-p", "msg=x", "-p", "count=many")
	var verr *command.ValidationError
	require.ErrorAs(t, res.err, &verr)
	assert.Equal(t, "count", verr.Field)

	res = run(t, m, runOptions{}, "enqueue", "a", "nosuch")
	assert.ErrorIs(t, res.err, command.ErrUnknownJobType)

	res = run(t, m, runOptions{}, "enqueue", "a", "echo", "-p", "novalue")
	require.Error(t, res.err)

	assert.Equal(t, 0, m.Calls(testutil.RouteEnqueue))
}

func TestDeleteCmd_Confirmation(t *testing.T) {
	m := newManager(t)

	res := run(t, m, runOptions{stdin: "n\n"}, "delete", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Are you really sure you want to delete job #1? [y/N] ")
	assert.Contains(t, res.out, "Job #1 not deleted\n")
	assert.Equal(t, 0, m.Calls(testutil.RouteDeleteJob))

	res = run(t, m, runOptions{stdin: "y\n"}, "delete", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "Deleted job #1\n")
	assert.Len(t, m.Jobs("a"), 1)

	res = run(t, m, runOptions{}, "delete", "--yes", "2")
	require.NoError(t, res.err)
	assert.Equal(t, "Deleted job #2\n", res.out)
	assert.Empty(t, m.Jobs("a"))
}

func TestDeleteCmd_EmptyInputDeclines(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{}, "delete", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "not deleted")
	assert.Len(t, m.Jobs("a"), 2)
}

func TestLogin_WrongPassword(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{password: "wrong"}, "queues")
	require.Error(t, res.err)
	assert.True(t, client.IsUnauthorized(res.err))
	assert.Contains(t, res.err.Error(), "log in again")
	assert.Empty(t, res.out)
}

func TestUserFlagOverridesConfig(t *testing.T) {
	m := newManager(t)
	m.SetCredentials("bob", "secret")

	res := run(t, m, runOptions{}, "--user", "bob", "queues")
	require.NoError(t, res.err)
}

func TestWatchCmd_PlainLines(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{timeout: 300 * time.Millisecond}, "watch", "a")
	require.NoError(t, res.err)

	assert.Contains(t, res.out, "[*] Alpha new=1 processing=0 done=1 failed=0 jobs=2")
	assert.Contains(t, res.out, "[session.closed]")
	assert.NotContains(t, res.out, "refresh.started")
}

func TestWatchCmd_JSON(t *testing.T) {
	m := newManager(t)
	res := run(t, m, runOptions{timeout: 300 * time.Millisecond}, "watch", "--json", "b")
	require.NoError(t, res.err)

	var types []string
	for _, line := range strings.Split(strings.TrimSpace(res.out), "\n") {
		var evt struct {
			Type  string `json:"type"`
			Queue string `json:"queue"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &evt), line)
		types = append(types, evt.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, "session.opened", types[0])
	assert.Contains(t, types, "refresh.succeeded")
	assert.Equal(t, "session.closed", types[len(types)-1])
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"a=1", " b =x=y", "c="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y", "c": ""}, params)

	_, err = parseParams([]string{"=1"})
	assert.Error(t, err)
	_, err = parseParams([]string{"plain"})
	assert.Error(t, err)
}

func TestLineConfirmer(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		" y ":   true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		var out bytes.Buffer
		ok, err := newLineConfirmer(strings.NewReader(input), &out).ConfirmDelete(context.Background(), 9)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "input %q", input)
		assert.Equal(t, "Are you really sure you want to delete job #9? [y/N] ", out.String())
	}
}
