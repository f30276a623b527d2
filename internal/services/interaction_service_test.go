// internal/services/interaction_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PersonaTownMCP/internal/storage"
)

func TestInteractionLedger(t *testing.T) {
	svc := NewInteractionService(newTestStorage(t))

	svc.RecordInteraction("a1", "a2", "comment", map[string]string{"post_id": "p1"})
	svc.RecordInteraction("a1", "a2", "comment", map[string]string{"post_id": "p2"})
	svc.RecordInteraction("a1", "a3", "comment", nil)

	t.Run("计数累加", func(t *testing.T) {
		assert.Equal(t, 2, svc.GetInteractionCount("a1", "a2"))
		assert.Equal(t, 1, svc.GetInteractionCount("a1", "a3"))
		assert.Equal(t, 0, svc.GetInteractionCount("a2", "a1"), "互动是有方向的")
	})

	t.Run("最后互动时间", func(t *testing.T) {
		assert.False(t, svc.GetLastInteraction("a1", "a2").IsZero())
		assert.True(t, svc.GetLastInteraction("a3", "a1").IsZero())
	})

	t.Run("自我互动不计入", func(t *testing.T) {
		svc.RecordInteraction("a1", "a1", "comment", nil)
		assert.Equal(t, 0, svc.GetInteractionCount("a1", "a1"))
	})

	t.Run("摘要", func(t *testing.T) {
		summary := svc.GetSummary("a1")

		assert.Equal(t, 3, summary.TotalInteractions)
		assert.Equal(t, 2, summary.UniqueAgents)
		require.NotEmpty(t, summary.MostInteracted)
		assert.Equal(t, "a2", summary.MostInteracted[0].TargetID)
		assert.Equal(t, 2, summary.MostInteracted[0].Count)
	})

	t.Run("没有互动的角色摘要为空", func(t *testing.T) {
		summary := svc.GetSummary("陌生人")
		assert.Equal(t, 0, summary.TotalInteractions)
		assert.Empty(t, summary.MostInteracted)
	})
}

func TestInteractionPersistence(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(dir)
	require.NoError(t, err)

	svc := NewInteractionService(fs)
	svc.RecordInteraction("a1", "a2", "comment", nil)
	svc.RecordInteraction("a1", "a2", "like", nil)

	// 重启后计数和时间都还在
	fs2, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	reloaded := NewInteractionService(fs2)

	assert.Equal(t, 2, reloaded.GetInteractionCount("a1", "a2"))
	assert.False(t, reloaded.GetLastInteraction("a1", "a2").IsZero())

	t.Run("事件日志只追加", func(t *testing.T) {
		assert.True(t, fs2.FileExists("", "interaction_events.jsonl"))
	})
}
