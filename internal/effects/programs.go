package effects

import (
	"github.com/samber/lo"
	"github.com/wheelibin/striplight/internal/constants"
)

// Instruction is one step of an effect program.
type Instruction interface {
	isInstruction()
}

// End terminates playback of the program.
type End struct{}

// Delay holds the current output for a number of ticks.
type Delay struct {
	Ticks uint8
}

// Level sets the output to a percentage of full scale.
type Level struct {
	Percent uint8
}

// Ramp interpolates linearly from Start to Stop percent over Ticks ticks.
type Ramp struct {
	Start uint8
	Stop  uint8
	Ticks uint16
}

func (End) isInstruction()   {}
func (Delay) isInstruction() {}
func (Level) isInstruction() {}
func (Ramp) isInstruction()  {}

// Program is an immutable named instruction sequence. Programs are shared between channels.
type Program struct {
	Name         string
	Instructions []Instruction
}

const (
	NameNone           = "None"
	NameJoiningNetwork = "JoiningNetwork"
	NameLeftNetwork    = "LeftNetwork"
	NameReboot         = "Reboot"
	NameIdentify       = "Identify"
	NameDeviceJoined   = "DeviceJoined"
)

func ms(v int) uint16 {
	return uint16(v * constants.EffectTicksPerSecond / 1000)
}

var (
	None = &Program{NameNone, []Instruction{End{}}}

	JoiningNetwork = &Program{NameJoiningNetwork, []Instruction{
		Ramp{Start: 1, Stop: 100, Ticks: ms(500)},
		Ramp{Start: 99, Stop: 0, Ticks: ms(500)},
		End{},
	}}

	LeftNetwork = &Program{NameLeftNetwork, []Instruction{
		Level{50},
		Delay{uint8(ms(250))},
		Level{0},
		Delay{uint8(ms(250))},
		End{},
	}}

	Reboot = &Program{NameReboot, []Instruction{
		Level{50},
		Delay{uint8(ms(150))},
		Level{50},
		Delay{uint8(ms(150))},
		Level{0},
		Delay{uint8(ms(150))},
		End{},
	}}

	Identify = &Program{NameIdentify, []Instruction{
		Level{100},
		Delay{uint8(ms(500))},
		Level{0},
		Delay{uint8(ms(500))},
		End{},
	}}

	DeviceJoined = &Program{NameDeviceJoined, []Instruction{
		Ramp{Start: 1, Stop: 100, Ticks: ms(150)},
		Ramp{Start: 99, Stop: 0, Ticks: ms(150)},
		End{},
	}}
)

var catalog = lo.KeyBy([]*Program{None, JoiningNetwork, LeftNetwork, Reboot, Identify, DeviceJoined},
	func(p *Program) string { return p.Name })

// Lookup returns the catalog program with the given name.
func Lookup(name string) (*Program, bool) {
	p, ok := catalog[name]
	return p, ok
}

func Names() []string {
	return lo.Keys(catalog)
}
