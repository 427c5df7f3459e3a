package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/pkg/domain"
)

func TestParseObservation(t *testing.T) {
	th, err := ParseObservation("  /execute in minecraft:overworld run tp @s 123.45 64.00 -678.90 -45.00 -30.00\n")
	require.NoError(t, err)
	assert.Equal(t, domain.Vec2{X: 123.45, Z: -678.90}, th.Position)
	assert.Equal(t, -45.0, th.Angle)
	require.NotNil(t, th.Vertical)
	assert.Equal(t, -30.0, *th.Vertical)
	assert.Equal(t, domain.KindStandard, th.Kind)

	wrapped, err := ParseObservation("/execute in minecraft:overworld run tp @s 0 70 0 200 0")
	require.NoError(t, err)
	assert.Equal(t, -160.0, wrapped.Angle)
}

func TestParseObservationRejects(t *testing.T) {
	cases := map[string]string{
		"not a command": "hello there",
		"nether":        "/execute in minecraft:the_nether run tp @s 1 2 3 4 5",
		"short":         "/execute in minecraft:overworld run tp @s 1 2 3",
		"non numeric":   "/execute in minecraft:overworld run tp @s 1 2 x 4 5",
		"nan":           "/execute in minecraft:overworld run tp @s NaN 2 3 4 5",
		"pitch range":   "/execute in minecraft:overworld run tp @s 1 2 3 4 95",
		"other target":  "/execute in minecraft:overworld run tp @p 1 2 3 4 5",
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseObservation(line)
			var malformed domain.MalformedObservationError
			require.ErrorAs(t, err, &malformed)
			assert.NotEmpty(t, malformed.Reason)
		})
	}
}
