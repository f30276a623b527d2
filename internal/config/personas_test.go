// internal/config/personas_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePersonas(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPersonas(t *testing.T) {
	path := writePersonas(t, `
personas:
  - id: "a1"
    name: "林文清"
    role: "图书馆管理员"
    system_prompt: "你是林文清"
    topics_of_interest: ["读书", "园艺"]
    initial_memories: ["整理了一批旧书"]
  - id: "a2"
    name: "苏曼"
    role: "游戏开发者"
    night_owl: true
`)

	profiles, err := LoadPersonas(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "a1", profiles[0].ID)
	assert.Equal(t, []string{"读书", "园艺"}, profiles[0].TopicsOfInterest)
	assert.False(t, profiles[0].NightOwl)
	assert.True(t, profiles[1].NightOwl)
}

func TestLoadPersonasValidation(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadPersonas("没有这个文件.yaml")
		assert.Error(t, err)
	})

	t.Run("空列表", func(t *testing.T) {
		path := writePersonas(t, "personas: []")
		_, err := LoadPersonas(path)
		assert.ErrorContains(t, err, "没有定义任何角色")
	})

	t.Run("重复ID", func(t *testing.T) {
		path := writePersonas(t, `
personas:
  - id: "a1"
    name: "甲"
  - id: "a1"
    name: "乙"
`)
		_, err := LoadPersonas(path)
		assert.ErrorContains(t, err, "角色ID重复")
	})

	t.Run("缺少name", func(t *testing.T) {
		path := writePersonas(t, `
personas:
  - id: "a1"
`)
		_, err := LoadPersonas(path)
		assert.ErrorContains(t, err, "缺少id或name")
	})

	t.Run("YAML格式损坏", func(t *testing.T) {
		path := writePersonas(t, "personas: [损坏")
		_, err := LoadPersonas(path)
		assert.Error(t, err)
	})
}
