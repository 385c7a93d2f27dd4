package tone_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreitas/taxpilot/tone"
)

func TestMineMarkersAggregatesPerLabel(t *testing.T) {
	logText := strings.Join([]string{
		"IRRITATED | this levy is garbage, total garbage",
		"IRRITATED | garbage system honestly",
		"INFORMAL | bruh the cashback tho",
		"INFORMAL | bruh where cashback",
		"FORMAL | might I enquire about the levy",
		"not a log line",
		"",
	}, "\n")

	suggestions, err := tone.MineMarkers(strings.NewReader(logText), nil, 2, 10)
	require.NoError(t, err)

	assert.Contains(t, suggestions[tone.Irritated], "garbage")
	assert.Contains(t, suggestions[tone.Informal], "bruh")
	assert.Contains(t, suggestions[tone.Informal], "cashback")
	// "levy" appears once per label, below the min frequency of 2.
	assert.NotContains(t, suggestions[tone.Formal], "levy")
}

func TestMineMarkersOrdersByFrequency(t *testing.T) {
	logText := strings.Join([]string{
		"IRRITATED | alpha alpha alpha beta beta",
		"IRRITATED | beta gamma gamma",
	}, "\n")

	suggestions, err := tone.MineMarkers(strings.NewReader(logText), nil, 2, 10)
	require.NoError(t, err)

	require.Len(t, suggestions[tone.Irritated], 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, suggestions[tone.Irritated])
}

func TestMineMarkersRespectsMaxTerms(t *testing.T) {
	logText := "IRRITATED | one one two two three three four four"

	suggestions, err := tone.MineMarkers(strings.NewReader(logText), nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, suggestions[tone.Irritated], 2)
}

func TestMineMarkersSkipsStopwords(t *testing.T) {
	logText := "IRRITATED | the the the garbage garbage"

	suggestions, err := tone.MineMarkers(strings.NewReader(logText), nil, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"garbage"}, suggestions[tone.Irritated])
}
