package log_test

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ali-3-3-3/EcoXChange/libs/log"
)

func TestNewDefaultLogger(t *testing.T) {
	testCases := map[string]struct {
		format    string
		level     string
		expectErr bool
	}{
		"invalid format": {
			format:    "foo",
			level:     log.LogLevelInfo,
			expectErr: true,
		},
		"invalid level": {
			format:    log.LogFormatJSON,
			level:     "foo",
			expectErr: true,
		},
		"valid format and level": {
			format:    log.LogFormatJSON,
			level:     log.LogLevelInfo,
			expectErr: false,
		},
		"plain format": {
			format:    log.LogFormatPlain,
			level:     log.LogLevelDebug,
			expectErr: false,
		},
	}

	for name, tc := range testCases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			_, err := log.NewDefaultLogger(tc.format, tc.level)
			if tc.expectErr {
				require.Error(t, err)
				require.Panics(t, func() {
					_ = log.MustNewDefaultLogger(tc.format, tc.level)
				})
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := log.NewLogger(&buf, log.LogFormatJSON, log.LogLevelInfo)
	require.NoError(t, err)

	logger.With("module", "pricing").Info("price updated", "project", 7, "new", 1200)
	logger.Debug("dropped below level")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "price updated", line["message"])
	require.Equal(t, "pricing", line["module"])
	require.EqualValues(t, 7, line["project"])
	require.EqualValues(t, 1200, line["new"])
	require.Equal(t, "info", line["level"])
}

func TestLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger, err := log.NewLogger(&buf, log.LogFormatJSON, log.LogLevelInfo)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				logger.Info("delivered tx", "worker", i, "seq", j)
			}
		}(i)
	}
	wg.Wait()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 8*50)
	for _, l := range lines {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(l, &line), "interleaved line %q", l)
	}
}

func TestHexadecimal(t *testing.T) {
	require.Equal(t, "0AFF", log.NewHexadecimal([]byte{0x0a, 0xff}).String())

	var buf bytes.Buffer
	logger, err := log.NewLogger(&buf, log.LogFormatJSON, log.LogLevelInfo)
	require.NoError(t, err)
	logger.Info("committed state", "app_hash", log.NewHexadecimal([]byte{0x0a, 0xff}))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "0AFF", line["app_hash"])
}

func TestTMLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := log.NewLogger(&buf, log.LogFormatJSON, log.LogLevelDebug)
	require.NoError(t, err)

	log.NewTMLogger(logger).With("module", "abci-server").Debug("accepted connection", "conn", 1)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "accepted connection", line["message"])
	require.Equal(t, "abci-server", line["module"])
	require.Equal(t, "debug", line["level"])
}
