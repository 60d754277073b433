package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelLevelsAndOutput(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	logger, err := NewChanneledLogger(&LoggerConfig{
		Writer:       &buf,
		JSONFormat:   true,
		DefaultLevel: slog.LevelInfo,
	})
	require.NoError(err)

	logger.Popup().Debug("hidden")
	require.Zero(buf.Len())

	logger.Popup().Info("Popup shown", "code", "JSC-TEST")
	require.Contains(buf.String(), `"channel":"popup"`)
	require.Contains(buf.String(), `"code":"JSC-TEST"`)

	require.NoError(logger.SetChannelLevel(ChannelPopup, slog.LevelDebug))
	buf.Reset()
	logger.Popup().Debug("now visible")
	require.Contains(buf.String(), "now visible")
	require.Equal("DEBUG", logger.GetChannelLevels()["popup"])

	require.Error(logger.SetChannelLevel(Channel("nope"), slog.LevelDebug))
}

func TestMasking(t *testing.T) {
	require := require.New(t)

	require.Equal("********", MaskSessionID("short"))
	require.Equal("01HZ****WXYZ", MaskSessionID("01HZABCDEFGHWXYZ"))
	require.Equal("a****@example.com", MaskEmail("alice@example.com"))
	require.Equal("****", MaskEmail("not-an-email"))
	require.Equal(slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(slog.LevelInfo, ParseLevel("whatever"))
}
