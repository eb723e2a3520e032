package camera

import (
	"fmt"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Command is a discrete control input.
type Command int

// Commands in the order a tick applies them.
const (
	PanUp Command = iota
	PanDown
	PanLeft
	PanRight
	PanNear
	PanFar
	RotateCW
	RotateCCW
	PitchUp
	PitchDown

	numCommands
)

var commandNames = [numCommands]string{
	PanUp:     "pan-up",
	PanDown:   "pan-down",
	PanLeft:   "pan-left",
	PanRight:  "pan-right",
	PanNear:   "pan-near",
	PanFar:    "pan-far",
	RotateCW:  "rotate-cw",
	RotateCCW: "rotate-ccw",
	PitchUp:   "pitch-up",
	PitchDown: "pitch-down",
}

func (c Command) String() string {
	if c < 0 || c >= numCommands {
		return fmt.Sprintf("command(%d)", int(c))
	}
	return commandNames[c]
}

// Commands returns every command in application order.
func Commands() []Command {
	out := make([]Command, numCommands)
	for i := range out {
		out[i] = Command(i)
	}
	return out
}

// ParseCommand resolves a command tag such as "pan-up".
func ParseCommand(s string) (Command, error) {
	for i, name := range commandNames {
		if name == s {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("unknown camera command %q", s)
}

// MarshalText encodes the command tag.
func (c Command) MarshalText() ([]byte, error) {
	if c < 0 || c >= numCommands {
		return nil, fmt.Errorf("invalid camera command %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a command tag.
func (c *Command) UnmarshalText(b []byte) error {
	cmd, err := ParseCommand(string(b))
	if err != nil {
		return err
	}
	*c = cmd
	return nil
}

// Apply performs one tick's worth of cmd. It reports false when the
// command was ignored.
func (c *Controller) Apply(cmd Command) bool {
	step, rot := c.cfg.PanStep, c.cfg.RotateStep
	switch cmd {
	case PanUp:
		return c.translate(transform.SceneVector{Y: step})
	case PanDown:
		return c.translate(transform.SceneVector{Y: -step})
	case PanLeft:
		return c.translate(transform.SceneVector{X: -step})
	case PanRight:
		return c.translate(transform.SceneVector{X: step})
	case PanNear:
		return c.translate(transform.SceneVector{Z: -step})
	case PanFar:
		return c.translate(transform.SceneVector{Z: step})
	case RotateCW:
		_, ok := c.RotateHorizontal(-rot)
		return ok
	case RotateCCW:
		_, ok := c.RotateHorizontal(rot)
		return ok
	case PitchUp:
		_, ok := c.RotateVertical(rot)
		return ok
	case PitchDown:
		_, ok := c.RotateVertical(-rot)
		return ok
	}
	return true
}
