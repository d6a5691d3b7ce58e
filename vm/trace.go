package vm

import "github.com/sirupsen/logrus"

// Tracer emits one structured log entry per dispatched instruction. It
// generalizes the original's `debug(fmt, ...)` macro and the teacher's
// `debugSymbols`/`debugOut` side-table (KTStephano-GVM/vm/vm.go) into
// leveled, field-based logging instead of ad hoc fprintf formatting.
//
// A nil *Tracer disables tracing entirely; Fiber.trace is a no-op in
// that case so the hot loop pays nothing when tracing is off.
type Tracer struct {
	Log *logrus.Logger

	// Symbols optionally names each function, keyed by its *Function in
	// the Program, the same role KTStephano-GVM's debugSymbols table plays
	// for its stack-machine disassembly. Built once per Program via
	// NewTracer/WithSymbols.
	Symbols map[*Function]string
}

// NewTracer builds a Tracer writing structured fields at debug level.
func NewTracer() *Tracer {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return &Tracer{Log: log, Symbols: make(map[*Function]string)}
}

// WithSymbols names the functions of program in index order from names,
// so trace output reads "fib" instead of an empty function field.
// Functions beyond len(names) stay unnamed.
func (t *Tracer) WithSymbols(program *Program, names []string) *Tracer {
	for i := range program.Functions {
		if i < len(names) {
			t.Symbols[&program.Functions[i]] = names[i]
		}
	}
	return t
}

func (f *Fiber) trace(fn *Function, bf *BlockFrame) {
	if f.Trace == nil {
		return
	}
	cf := f.currentCall()
	name := f.Trace.Symbols[fn]
	f.Trace.Log.WithFields(logrus.Fields{
		"function":    name,
		"ip":          bf.InstructionPtr,
		"call_depth":  f.callTop + 1,
		"block_depth": f.blockTop + 1,
		"stack_base":  cf.StackBase,
		"data_cursor": f.dataTop,
	}).Debug("dispatch")
}
