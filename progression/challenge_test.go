package progression

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeRoundTrip(t *testing.T) {
	issued := time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
	ch := BuildChallenge("0xABCdef0123", "proj-1", "task-9", 137, issued)

	wire := ch.String()
	lines := strings.Split(wire, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, ChallengeTag, lines[0])
	assert.Equal(t, "0xabcdef0123", lines[1], "address is lowercased in the wire form")

	parsed, err := ParseChallenge(wire)
	require.NoError(t, err)
	assert.Equal(t, ch.WalletAddress, parsed.WalletAddress)
	assert.Equal(t, ch.ProjectID, parsed.ProjectID)
	assert.Equal(t, ch.TaskID, parsed.TaskID)
	assert.EqualValues(t, 137, parsed.ChainID)
	assert.True(t, parsed.IssuedAt.Equal(issued))
}

func TestParseChallenge_Rejects(t *testing.T) {
	issued := time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
	good := BuildChallenge("0xabc", "proj-1", "task-9", 1, issued).String()

	cases := map[string]string{
		"truncated":  strings.Join(strings.Split(good, "\n")[:5], "\n"),
		"extra line": good + "\nextra",
		"wrong tag":  strings.Replace(good, ChallengeTag, "some-other-protocol", 1),
		"bad chain":  strings.Replace(good, "\n1\n", "\nmainnet\n", 1),
		"bad time":   strings.Replace(good, issued.Format(time.RFC3339), "yesterday", 1),
		"empty":      "",
	}
	for name, wire := range cases {
		_, err := ParseChallenge(wire)
		assert.Error(t, err, name)
	}
}
