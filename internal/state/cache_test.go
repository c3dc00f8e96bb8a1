package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/batchq/internal/client"
)

func stats(n, p, d, f int) client.QueueStats {
	return client.QueueStats{Counts: map[client.JobStatus]int{
		client.StatusNew:        n,
		client.StatusProcessing: p,
		client.StatusDone:       d,
		client.StatusFailed:     f,
	}}
}

func TestNewCache_Empty(t *testing.T) {
	c := NewCache()
	assert.Empty(t, c.Queues())
	assert.Empty(t, c.Jobs())
	assert.Equal(t, "", c.Selected())
	assert.Equal(t, 0, c.Stats().Total())
	assert.False(t, c.TypesLoaded())

	snap := c.Snapshot()
	assert.Zero(t, snap.Generation)
	assert.True(t, snap.RefreshedAt.IsZero())
	_, ok := snap.SelectedQueue()
	assert.False(t, ok)
}

func TestReplaceJobsAndStats_OnlyForSelectedQueue(t *testing.T) {
	c := NewCache()
	c.ReplaceQueues([]client.Queue{{Name: "a"}, {Name: "b"}})
	c.Select("a")

	ok := c.ReplaceJobsAndStats("b", []client.Job{{ID: 1, Type: "t", Queue: "b"}}, stats(1, 0, 0, 0))
	assert.False(t, ok)
	assert.Empty(t, c.Jobs())

	ok = c.ReplaceJobsAndStats("a", []client.Job{{ID: 2, Type: "t", Queue: "a"}}, stats(0, 1, 0, 0))
	require.True(t, ok)
	require.Len(t, c.Jobs(), 1)
	assert.Equal(t, int64(2), c.Jobs()[0].ID)
	assert.Equal(t, 1, c.Stats().Count(client.StatusProcessing))
}

func TestReplaceJobsAndStats_RejectedWithoutSelection(t *testing.T) {
	c := NewCache()
	assert.False(t, c.ReplaceJobsAndStats("", nil, client.QueueStats{}))
	assert.False(t, c.ReplaceJobsAndStats("a", nil, client.QueueStats{}))
}

func TestSelect_ClearsPreviousQueueData(t *testing.T) {
	c := NewCache()
	c.Select("a")
	require.True(t, c.ReplaceJobsAndStats("a", []client.Job{{ID: 1, Type: "t"}}, stats(1, 0, 0, 0)))

	assert.False(t, c.Select("a"))
	assert.Len(t, c.Jobs(), 1)

	assert.True(t, c.Select("b"))
	assert.Empty(t, c.Jobs())
	assert.Equal(t, 0, c.Stats().Total())
	assert.Equal(t, "b", c.Selected())
}

func TestCopiesDoNotShareBackingArrays(t *testing.T) {
	c := NewCache()
	queues := []client.Queue{{Name: "a", Title: "A"}}
	c.ReplaceQueues(queues)
	queues[0].Title = "mutated"
	assert.Equal(t, "A", c.Queues()[0].Title)

	c.Select("a")
	jobs := []client.Job{{ID: 1, Type: "t", Params: map[string]string{"k": "v"}}}
	require.True(t, c.ReplaceJobsAndStats("a", jobs, stats(1, 0, 0, 0)))
	jobs[0].Params["k"] = "mutated"
	assert.Equal(t, "v", c.Jobs()[0].Params["k"])

	got := c.Jobs()
	got[0].Params["k"] = "also mutated"
	assert.Equal(t, "v", c.Jobs()[0].Params["k"])

	def := "5"
	c.ReplaceTypes([]client.JobType{{Name: "t", Params: []client.ParamSpec{{Name: "n", Default: &def}}}})
	def = "6"
	typ, ok := c.Type("t")
	require.True(t, ok)
	assert.Equal(t, "5", typ.Params[0].DefaultValue())
}

func TestSnapshot_TracksGenerationAndRefreshTime(t *testing.T) {
	c := NewCache()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	c.ReplaceQueues([]client.Queue{{Name: "a", HostName: ""}})
	c.Select("a")
	before := c.Snapshot().Generation
	require.True(t, c.ReplaceJobsAndStats("a", nil, stats(0, 0, 2, 1)))

	snap := c.Snapshot()
	assert.Greater(t, snap.Generation, before)
	assert.Equal(t, fixed, snap.RefreshedAt)
	assert.Equal(t, 3, snap.Stats.Total())

	q, ok := snap.SelectedQueue()
	require.True(t, ok)
	assert.Equal(t, "*", q.Host())
}

func TestQueueAndTypeLookup(t *testing.T) {
	c := NewCache()
	c.ReplaceQueues([]client.Queue{{Name: "a", Enabled: true}})
	c.ReplaceTypes([]client.JobType{{Name: "echo"}})

	q, ok := c.Queue("a")
	require.True(t, ok)
	assert.True(t, q.Enabled)
	_, ok = c.Queue("z")
	assert.False(t, ok)

	_, ok = c.Type("echo")
	assert.True(t, ok)
	_, ok = c.Type("nope")
	assert.False(t, ok)
	assert.True(t, c.TypesLoaded())
}
