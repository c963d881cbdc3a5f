package storage

import (
	"BookingInsight/src/config"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	logger.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func TestLoggerWritesEntries(t *testing.T) {
	logger, path := newTestLogger(t)

	logger.Info("数据集加载完成")
	logger.Warning("3 行日期无法解析")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-10-18 09:30:00] INFO: 数据集加载完成", lines[0])
	assert.Equal(t, "[2026-10-18 09:30:00] WARNING: 3 行日期无法解析", lines[1])
}

func TestLoggerSubscribe(t *testing.T) {
	logger, _ := newTestLogger(t)

	sub := logger.Subscribe()
	logger.Error("boom")

	select {
	case msg := <-sub:
		assert.Contains(t, msg, "ERROR: boom")
	case <-time.After(time.Second):
		t.Fatal("订阅者没有收到日志")
	}

	logger.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok, "取消订阅后通道应关闭")

	// 已取消的订阅不再接收, 也不会panic
	logger.Info("after")
}

func TestLoggerSubscriberDropsWhenFull(t *testing.T) {
	logger, _ := newTestLogger(t)
	sub := logger.Subscribe()

	for i := 0; i < subscriberBuffer+20; i++ {
		logger.Debug("tick")
	}
	assert.Len(t, sub, subscriberBuffer)
}

func TestLoggerCheckRotate(t *testing.T) {
	logger, path := newTestLogger(t)

	cfg := &config.Config{LogMaxSize: "8 * 4"}
	logger.Info("this line is long enough to exceed thirty two bytes")
	require.NoError(t, logger.CheckRotate(cfg))

	rotated := path + ".20261018093000"
	_, err := os.Stat(rotated)
	assert.NoError(t, err, "旧日志应被改名")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	logger.Info("fresh")
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestLoggerRotateKeepsWritingOnFailure(t *testing.T) {
	logger, path := newTestLogger(t)
	logger.Info("before")

	// 文件被外部删除, 改名会失败
	require.NoError(t, os.Remove(path))
	assert.Error(t, logger.rotateLog())

	logger.Info("after")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after")

	// 目录不存在时不再持有已关闭的文件
	require.Error(t, logger.Reopen(filepath.Join(t.TempDir(), "missing", "app.log")))
	assert.Nil(t, logger.file)
	logger.Info("dropped")
}

func TestLoggerReopen(t *testing.T) {
	logger, _ := newTestLogger(t)
	next := filepath.Join(t.TempDir(), "next.log")

	require.NoError(t, logger.Reopen(next))
	logger.Info("moved")

	data, err := os.ReadFile(next)
	require.NoError(t, err)
	assert.Contains(t, string(data), "moved")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(2048), eval("2048"))
	assert.Zero(t, eval(""))
	assert.Zero(t, eval("ten * 2"))
}
