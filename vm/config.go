package vm

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FiberConfig holds the host-tunable budgets spec.md §6 leaves as
// reference values rather than fixed constants: data-stack words,
// call-stack frames, and block frames per call frame. It generalizes
// KTStephano-GVM/vm/run.go's single GOGC-environment-variable knob into
// a real config file, grounded on stackedboxes-romualdo's use of
// github.com/pelletier/go-toml/v2 for its own VM's settings.
type FiberConfig struct {
	DataStackWords  int  `toml:"data_stack_words"`
	CallStackFrames int  `toml:"call_stack_frames"`
	BlockFramesPer  int  `toml:"block_frames_per_call"`
	DisableGCDuring bool `toml:"disable_gc_during_run"`
}

// DefaultFiberConfig mirrors spec.md §6's reference budgets.
func DefaultFiberConfig() FiberConfig {
	return FiberConfig{
		DataStackWords:  DefaultDataStackWords,
		CallStackFrames: DefaultCallStackFrames,
		BlockFramesPer:  DefaultBlockFramesPer,
		DisableGCDuring: false,
	}
}

// LoadFiberConfig reads a TOML config file, falling back to
// DefaultFiberConfig for any field the file omits.
func LoadFiberConfig(path string) (FiberConfig, error) {
	cfg := DefaultFiberConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading fiber config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing fiber config: %w", err)
	}
	return cfg, nil
}

// NewFiber builds a Fiber sized by this config.
func (c FiberConfig) NewFiber(program *Program) *Fiber {
	return NewFiber(program, c.DataStackWords, c.CallStackFrames,
		c.CallStackFrames*c.BlockFramesPer)
}
