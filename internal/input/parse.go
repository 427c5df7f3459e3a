// Package input turns external events into state handler calls: F3+C text
// observations read from a polled source, and named hotkey commands.
package input

import (
	"strconv"
	"strings"

	"strongholdcore/pkg/domain"
)

const (
	observationPrefix = "/execute in "
	overworld         = "minecraft:overworld"
)

// ParseObservation parses the text Minecraft copies on F3+C:
//
//	/execute in minecraft:overworld run tp @s X Y Z YAW PITCH
//
// Y is discarded and PITCH becomes the vertical angle. Failures are
// domain.MalformedObservationError.
func ParseObservation(line string) (domain.Throw, error) {
	text := strings.TrimSpace(line)
	bad := func(reason string) (domain.Throw, error) {
		return domain.Throw{}, domain.MalformedObservationError{Line: text, Reason: reason}
	}
	if !strings.HasPrefix(text, observationPrefix) {
		return bad("not an F3+C command")
	}
	fields := strings.Fields(text)
	// /execute in DIM run tp @s X Y Z YAW PITCH
	if len(fields) != 11 || fields[3] != "run" || fields[4] != "tp" || fields[5] != "@s" {
		return bad("unexpected command layout")
	}
	if fields[2] != overworld {
		return bad("throws must be taken in the overworld, got " + fields[2])
	}
	var nums [5]float64
	for i := range nums {
		v, err := strconv.ParseFloat(fields[6+i], 64)
		if err != nil {
			return bad("field " + fields[6+i] + " is not a number")
		}
		nums[i] = v
	}
	t := domain.NewThrow(nums[0], nums[2], nums[3])
	pitch := nums[4]
	t.Vertical = &pitch
	if err := t.Validate(); err != nil {
		return bad(err.Error())
	}
	return t, nil
}
