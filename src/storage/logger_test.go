package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path, "debug", "")
	require.NoError(t, err)

	logger.Debug("调试")
	logger.Info("数据集加载完成")
	logger.Warning("缺少可选列")
	logger.Error("查询失败")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "level=debug")
	assert.Contains(t, content, "数据集加载完成")
	assert.Contains(t, content, "level=warning")
	assert.Contains(t, content, "level=error")
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, WARNING)

	logger.Info("hidden")
	logger.Warning("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(filepath.Join(t.TempDir(), "app.log"), "loud", "")
	require.Error(t, err)
}

func TestLoggerSubscribe(t *testing.T) {
	logger := NewWriterLogger(&bytes.Buffer{}, INFO)
	ch := logger.Subscribe()

	logger.Info("hello subscribers")

	select {
	case msg := <-ch:
		assert.Contains(t, msg, "hello subscribers")
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive message")
	}

	require.NoError(t, logger.Close())
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Close")
}

func TestLoggerCheckRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path, "info", "64")
	require.NoError(t, err)
	defer logger.Close()

	rotated, err := logger.CheckRotate()
	require.NoError(t, err)
	assert.False(t, rotated)

	logger.Info(strings.Repeat("x", 128))

	rotated, err = logger.CheckRotate()
	require.NoError(t, err)
	assert.True(t, rotated)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestLoggerRotateKeepsConcurrentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path, "info", "64")
	require.NoError(t, err)

	const n = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			logger.Info(strings.Repeat("y", 80))
		}
	}()
	for {
		_, err := logger.CheckRotate()
		require.NoError(t, err)
		select {
		case <-done:
			require.NoError(t, logger.Close())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			lines := 0
			for _, e := range entries {
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				require.NoError(t, err)
				lines += strings.Count(string(data), "\n")
			}
			assert.Equal(t, n, lines)
			return
		default:
		}
	}
}

func TestLoggerUnsubscribe(t *testing.T) {
	logger := NewWriterLogger(&bytes.Buffer{}, INFO)
	first := logger.Subscribe()
	second := logger.Subscribe()

	logger.Unsubscribe(first)
	_, ok := <-first
	assert.False(t, ok)

	logger.Info("still subscribed")
	assert.Contains(t, <-second, "still subscribed")

	// 重复取消与Close后取消都不会panic
	logger.Unsubscribe(first)
	require.NoError(t, logger.Close())
	logger.Unsubscribe(second)
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(64), eval("64"))
	assert.Equal(t, int64(0), eval(""))
	assert.Equal(t, int64(0), eval("ten"))
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "INFO", INFO.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
