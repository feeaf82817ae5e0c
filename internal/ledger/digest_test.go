package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/reasonledger/pkg/models"
)

func TestGetCompressionStats(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("plain", &models.ThoughtRecord{StepNumber: 1, Thought: "x"}))
	stats := store.GetCompressionStats("plain")
	require.NotNil(t, stats)
	assert.Equal(t, models.CompressionStats{}, *stats)

	require.NoError(t, store.AddThought("packed", &models.ThoughtRecord{
		StepNumber:  1,
		Thought:     "x",
		Compression: &models.CompressionMetrics{InputBytesSaved: 100, OutputBytesSaved: 20, ContextBytesSaved: 5},
	}))
	require.NoError(t, store.AddThought("packed", &models.ThoughtRecord{StepNumber: 2, Thought: "y"}))
	require.NoError(t, store.AddThought("packed", &models.ThoughtRecord{
		StepNumber:  3,
		Thought:     "z",
		Compression: &models.CompressionMetrics{InputBytesSaved: 50},
	}))

	stats = store.GetCompressionStats("packed")
	require.NotNil(t, stats)
	assert.Equal(t, int64(175), stats.TotalBytesSaved)
	assert.Equal(t, 2, stats.StepCount)
	assert.Equal(t, models.CompressionBreakdown{Input: 150, Output: 20, Context: 5}, stats.Breakdown)
}

func TestGetAverageConfidence(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("s", verified(1, "a", 0.8)))
	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 2, Thought: "unverified"}))
	require.NoError(t, store.AddThought("s", verified(3, "c", 0.6)))
	alt := verified(4, "d", 0.2)
	alt.BranchID = "alt"
	alt.BranchFrom = 3
	require.NoError(t, store.AddThought("s", alt))

	assert.InDelta(t, (0.8+0.6+0.2)/3, store.GetAverageConfidence("s", ""), 1e-9)
	assert.InDelta(t, 0.7, store.GetAverageConfidence("s", models.DefaultBranch), 1e-9)
	assert.InDelta(t, 0.2, store.GetAverageConfidence("s", "alt"), 1e-9)
	assert.Zero(t, store.GetAverageConfidence("s", "missing"))

	require.NoError(t, store.AddThought("none", &models.ThoughtRecord{StepNumber: 1, Thought: "x"}))
	assert.Zero(t, store.GetAverageConfidence("none", ""))
}

func TestGetSummary(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("s", verified(1, "Let x = 5", 0.9)))
	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 2, Thought: "Now x = 10", RevisesStep: 1, TotalSteps: 4}))
	require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: 3, Thought: "try   another\nway", BranchID: "alt", BranchFrom: 1}))

	summary, ok := store.GetSummary("s")
	require.True(t, ok)
	assert.Contains(t, summary, "Session s: 3 steps, 2 branches")
	assert.Contains(t, summary, "avg confidence 0.90")
	assert.Contains(t, summary, "[main]\n")
	assert.Contains(t, summary, "[alt] from step 1\n")
	assert.Contains(t, summary, "#1 [ok 0.90 math]: Let x = 5")
	assert.Contains(t, summary, "#2 revises #1 2/4: Now x = 10")
	assert.Contains(t, summary, "#3 (alt): try another way")
}

func TestGetCompressed(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("s", verified(1, "verified early", 0.9)))
	for i := 2; i <= 6; i++ {
		require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: i, Thought: "plain"}))
	}

	digest, ok := store.GetCompressed("s", 2)
	require.True(t, ok)
	assert.Contains(t, digest, "#1 [ok 0.90 math]: verified early")
	assert.Contains(t, digest, "#5: plain")
	assert.Contains(t, digest, "#6: plain")
	assert.NotContains(t, digest, "#2:")
	assert.NotContains(t, digest, "#4:")
	assert.Contains(t, digest, "(3 unverified earlier steps omitted)")

	_, ok = store.GetCompressed("missing", 0)
	assert.False(t, ok)
}

func TestGetCompressedOmitsFailedVerification(t *testing.T) {
	store := New(Options{CleanupInterval: -1})
	defer store.Destroy()

	require.NoError(t, store.AddThought("s", verified(1, "checked and wrong", 0.2)))
	require.NoError(t, store.AddThought("s", verified(2, "checked and right", 0.9)))
	for i := 3; i <= 5; i++ {
		require.NoError(t, store.AddThought("s", &models.ThoughtRecord{StepNumber: i, Thought: "plain"}))
	}

	digest, ok := store.GetCompressed("s", 1)
	require.True(t, ok)
	assert.NotContains(t, digest, "checked and wrong")
	assert.Contains(t, digest, "#2 [ok 0.90 math]: checked and right")
	assert.Contains(t, digest, "#5: plain")
	assert.Contains(t, digest, "(3 unverified earlier steps omitted)")
}

func TestPreviewTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	p := preview(string(long))
	assert.Len(t, []rune(p), previewRunes)
	assert.True(t, len(p) > 3 && p[len(p)-3:] == "...")
}
