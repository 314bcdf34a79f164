package services_test

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/application/services"
	"github.com/astroask/backend/internal/core/domain/astrology"
)

var keyPattern = regexp.MustCompile(`^[a-z-]+-[0-9a-f]{64}$`)

func TestFingerprint_Deterministic(t *testing.T) {
	params := map[string]any{"datetime": "2001-04-23T12:53:00+05:30", "coordinates": "28.6139,77.209", "ayanamsa": 1}
	a, err := services.Fingerprint(astrology.TagChart, params)
	require.NoError(t, err)
	b, err := services.Fingerprint(astrology.TagChart, params)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Regexp(t, keyPattern, a)
	require.Equal(t, "chart-", a[:6])
}

func TestFingerprint_KeyOrderDoesNotMatter(t *testing.T) {
	first := json.RawMessage(`{"sign":"Leo","house":{"n":5,"lord":"Sun"},"list":[3,1,2]}`)
	second := json.RawMessage(`{"list":[3,1,2],"house":{"lord":"Sun","n":5},"sign":"Leo"}`)

	a, err := services.Fingerprint(astrology.TagExplainChart, map[string]any{"data": first, "language": "en"})
	require.NoError(t, err)
	b, err := services.Fingerprint(astrology.TagExplainChart, map[string]any{"language": "en", "data": second})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFingerprint_ArrayOrderAndNumbersMatter(t *testing.T) {
	a, _ := services.Fingerprint(astrology.TagDasha, json.RawMessage(`{"v":[1,2]}`))
	b, _ := services.Fingerprint(astrology.TagDasha, json.RawMessage(`{"v":[2,1]}`))
	require.NotEqual(t, a, b)

	c, _ := services.Fingerprint(astrology.TagDasha, json.RawMessage(`{"v":28.6139}`))
	d, _ := services.Fingerprint(astrology.TagDasha, json.RawMessage(`{"v":28.61390001}`))
	require.NotEqual(t, c, d)
}

func TestFingerprint_OperationTagSeparatesKeys(t *testing.T) {
	params := map[string]string{"datetime": "x", "coordinates": "y"}
	seen := map[string]astrology.OperationTag{}
	for _, tag := range []astrology.OperationTag{
		astrology.TagChart, astrology.TagDasha, astrology.TagYearly,
		astrology.TagExplainChart, astrology.TagExplainDasha, astrology.TagExplainYearly,
	} {
		k, err := services.Fingerprint(tag, params)
		require.NoError(t, err)
		_, dup := seen[k]
		require.False(t, dup, "tag %s collides", tag)
		seen[k] = tag
	}
}

func TestFingerprint_ConstantSizeForLargePayloads(t *testing.T) {
	big := make([]int, 50_000)
	k, err := services.Fingerprint(astrology.TagExplainYearly, map[string]any{"data": big})
	require.NoError(t, err)
	require.Len(t, k, len("explain-yearly-")+64)
}
