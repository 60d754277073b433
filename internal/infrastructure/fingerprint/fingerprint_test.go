package fingerprint

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeKnownVectors(t *testing.T) {
	require := require.New(t)

	require.Equal(uint32(0x811c9dc5), Compute(nil))
	require.Equal(uint32(0x811c9dc5), Compute([]string{""}))
	require.Equal(uint32(0xe40c292c), Compute([]string{"a"}))
	require.Equal(uint32(0xe70c2de5), Compute([]string{"b"}))
	require.Equal(uint32(0x294c7dd6), Compute([]string{"a", "b"}))
	require.Equal(uint32(0x843fdc6c), Compute([]string{"Mozilla/5.0", "en-US", "203.0.113.7"}))
}

func TestComputeIsPure(t *testing.T) {
	require := require.New(t)

	signals := []string{"Mozilla/5.0", "de-CH", "1920", "1080", "24", "Europe/Zurich", "-120"}
	require.Equal(Compute(signals), Compute(append([]string(nil), signals...)))
	require.NotEqual(Compute([]string{"a"}), Compute([]string{"b"}))
	require.NotEqual(Compute([]string{"a", ""}), Compute([]string{"a"}))
}

func TestClientSignalsOrder(t *testing.T) {
	require := require.New(t)

	c := ClientSignals{
		UserAgent: "UA", Language: "de-CH", ScreenWidth: 1920, ScreenHeight: 1080,
		ColorDepth: 24, TimeZone: "Europe/Zurich", TimezoneOffset: -120,
	}
	require.Equal([]string{"UA", "de-CH", "1920", "1080", "24", "Europe/Zurich", "-120"}, c.Signals())
	require.Equal(Compute(c.Signals()), c.Fingerprint())
}

func TestFromRequest(t *testing.T) {
	require := require.New(t)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0")
	r.Header.Set("Accept-Language", "en-US")

	require.Equal(uint32(0x843fdc6c), FromRequest(r, "203.0.113.7"))
	require.Equal(uint32(0x843fdc6c), Resolve(nil, r, "203.0.113.7"))
	require.Equal(uint32(0x843fdc6c), Resolve(&ClientSignals{}, r, "203.0.113.7"))

	client := &ClientSignals{UserAgent: "Mozilla/5.0"}
	require.Equal(client.Fingerprint(), Resolve(client, r, "203.0.113.7"))
}
