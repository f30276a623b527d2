// internal/storage/file_storage_test.go
package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestSaveAndLoadJSON(t *testing.T) {
	fs := newStorage(t)

	in := payload{Name: "林文清", Count: 3}
	require.NoError(t, fs.SaveJSONFile("agents", "a1.json", in))

	var out payload
	require.NoError(t, fs.LoadJSONFile("agents", "a1.json", &out))
	assert.Equal(t, in, out)

	t.Run("覆盖写入取最新", func(t *testing.T) {
		in.Count = 7
		require.NoError(t, fs.SaveJSONFile("agents", "a1.json", in))

		var again payload
		require.NoError(t, fs.LoadJSONFile("agents", "a1.json", &again))
		assert.Equal(t, 7, again.Count)
	})

	t.Run("写入后没有残留临时文件", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(fs.BaseDir, "agents"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})
}

func TestLoadMissingFile(t *testing.T) {
	fs := newStorage(t)

	var out payload
	err := fs.LoadJSONFile("", "不存在.json", &out)
	assert.Error(t, err)
}

func TestAppendJSONLine(t *testing.T) {
	fs := newStorage(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, fs.AppendJSONLine("", "events.jsonl", payload{Name: "事件", Count: i}))
	}

	f, err := os.Open(filepath.Join(fs.BaseDir, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []payload
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var p payload
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &p))
		lines = append(lines, p)
	}

	require.Len(t, lines, 3)
	// 追加保持顺序
	for i, p := range lines {
		assert.Equal(t, i, p.Count)
	}
}

func TestFileExists(t *testing.T) {
	fs := newStorage(t)

	assert.False(t, fs.FileExists("", "ghost.json"))
	require.NoError(t, fs.SaveJSONFile("", "ghost.json", payload{}))
	assert.True(t, fs.FileExists("", "ghost.json"))
}

func TestListFiles(t *testing.T) {
	fs := newStorage(t)

	require.NoError(t, fs.SaveJSONFile("", "b_state.json", payload{}))
	require.NoError(t, fs.SaveJSONFile("", "a_state.json", payload{}))
	require.NoError(t, fs.SaveJSONFile("", "other.txt", payload{}))

	t.Run("按后缀过滤并排序", func(t *testing.T) {
		files, err := fs.ListFiles("", "_state.json")
		require.NoError(t, err)
		assert.Equal(t, []string{"a_state.json", "b_state.json"}, files)
	})

	t.Run("目录不存在返回空", func(t *testing.T) {
		files, err := fs.ListFiles("没有的目录", "")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestDeleteFile(t *testing.T) {
	fs := newStorage(t)

	require.NoError(t, fs.SaveJSONFile("", "temp.json", payload{}))
	require.NoError(t, fs.DeleteFile("", "temp.json"))
	assert.False(t, fs.FileExists("", "temp.json"))

	assert.Error(t, fs.DeleteFile("", "temp.json"))
}
