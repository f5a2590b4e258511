package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaleed/ringframe/internal/config"
	"github.com/mvaleed/ringframe/internal/framing"
	"github.com/mvaleed/ringframe/internal/storage"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHeaderCommand(t *testing.T) {
	t.Run("make", func(t *testing.T) {
		out, err := execute(t, "", "header", "make", "24", "7")
		require.NoError(t, err)

		assert.Contains(t, out, "Header: 0x0000000700000018")
		assert.Contains(t, out, "Bytes:  1800000007000000")
		assert.Contains(t, out, "Length: 24")
		assert.Contains(t, out, "Type:   7")
		assert.NotContains(t, out, "Note:")
	})

	t.Run("make flags reserved type ids", func(t *testing.T) {
		out, err := execute(t, "", "header", "make", "0", "0")
		require.NoError(t, err)
		assert.Contains(t, out, "Note:   invalid argument")
	})

	t.Run("decode word and bytes", func(t *testing.T) {
		for _, input := range []string{"0x0000000700000018", "1800000007000000"} {
			out, err := execute(t, "", "header", "decode", input)
			require.NoError(t, err)
			assert.Contains(t, out, "Length: 24", input)
			assert.Contains(t, out, "Type:   7", input)
		}
	})

	t.Run("decode negative length", func(t *testing.T) {
		out, err := execute(t, "", "header", "decode", "0x00000001ffffffff")
		require.NoError(t, err)
		assert.Contains(t, out, "Length: -1")
	})

	t.Run("decode rejects garbage", func(t *testing.T) {
		_, err := execute(t, "", "header", "decode", "zz")
		assert.Error(t, err)
		_, err = execute(t, "", "header", "decode", "1800")
		assert.Error(t, err)
	})

	t.Run("offsets", func(t *testing.T) {
		out, err := execute(t, "", "header", "offsets", "16")
		require.NoError(t, err)
		assert.Contains(t, out, "Length offset:  16")
		assert.Contains(t, out, "Type offset:    20")
		assert.Contains(t, out, "Message offset: 24")
		assert.NotContains(t, out, "Warning")

		out, err = execute(t, "", "header", "offsets", "12")
		require.NoError(t, err)
		assert.Contains(t, out, "Warning")
	})
}

func TestRingCommands(t *testing.T) {
	ring := filepath.Join(t.TempDir(), "data", "test.ring")

	out, err := execute(t, "", "init", "--ring", ring, "--capacity", "4096")
	require.NoError(t, err)
	assert.Contains(t, out, "Capacity: 4096")
	assert.Contains(t, out, "Max message length: 512")

	out, err = execute(t, "", "write", "--ring", ring, "--type", "3", "alpha", "beta")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 messages")

	out, err = execute(t, "gamma\ndelta\n", "write", "--ring", ring, "-t", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 messages")

	_, err = execute(t, "", "write", "--ring", ring, "--type", "0", "nope")
	assert.ErrorIs(t, err, framing.ErrInvalidArgument)

	out, err = execute(t, "", "dump", "--ring", ring)
	require.NoError(t, err)
	assert.Contains(t, out, `Payload:   "alpha"`)
	assert.Contains(t, out, "Total: 4 records")

	out, err = execute(t, "", "read", "--ring", ring, "--limit", "3")
	require.NoError(t, err)
	assert.Equal(t, "3\talpha\n3\tbeta\n4\tgamma\n", out)

	out, err = execute(t, "", "read", "--ring", ring)
	require.NoError(t, err)
	assert.Equal(t, "4\tdelta\n", out)

	t.Run("init refuses a different capacity without force", func(t *testing.T) {
		_, err := execute(t, "", "init", "--ring", ring, "--capacity", "8192")
		assert.Error(t, err)

		out, err := execute(t, "", "init", "--ring", ring, "--capacity", "8192", "--force")
		require.NoError(t, err)
		assert.Contains(t, out, "Capacity: 8192")
	})
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "ringframe.yaml")
	ring := filepath.Join(dir, "from-config.ring")

	_, err := execute(t, "", "config", "init", configPath, "--ring", ring)
	require.NoError(t, err)
	assert.FileExists(t, configPath)

	loaded, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, ring, loaded.Ring.Path)

	_, err = execute(t, "", "init", "--config", configPath, "--capacity", "1024")
	require.NoError(t, err)
	assert.FileExists(t, ring)

	t.Run("invalid log level", func(t *testing.T) {
		_, err := execute(t, "", "header", "offsets", "0", "--log-level", "chatty")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestRunDrain(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Ring.Path = filepath.Join(dir, "drain.ring")
	cfg.Ring.Capacity = 4096
	cfg.Drain.SegmentPath = filepath.Join(dir, "segments", "drained.seg")
	cfg.Drain.PollInterval = time.Millisecond

	rf, err := storage.OpenRingFile(storage.RingFileConfig{Path: cfg.Ring.Path, Capacity: cfg.Ring.Capacity})
	require.NoError(t, err)
	defer rf.Close()

	for i := range 20 {
		require.NoError(t, rf.Ring().Write(int32(i+1), []byte("payload")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runDrain(ctx, cfg, slog.Default())
	}()

	assert.Eventually(t, func() bool { return rf.Ring().Size() == 0 }, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	f, err := os.Open(cfg.Drain.SegmentPath)
	require.NoError(t, err)
	defer f.Close()

	var types []int32
	err = storage.ScanSegment(f, func(h framing.RecordHeader, payload []byte) error {
		types = append(types, h.TypeID)
		assert.Equal(t, "payload", string(payload))
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, types, 20)
	assert.Equal(t, int32(20), types[19])
}
