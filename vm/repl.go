package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// Debugger drives a Fiber one instruction at a time, replacing
// KTStephano-GVM/vm/run.go's RunProgramDebugMode raw bufio.Reader
// prompt loop with github.com/chzyer/readline so the session gets
// history and line editing, grounded on wudi-hey's interactive-shell
// use of the same library.
//
// Supported commands mirror the teacher's surface: "n"/"next" steps one
// instruction, "r"/"run" runs to completion or to the next breakpoint,
// "b <ip>" toggles a breakpoint on an instruction offset of the
// top-level function, "program" disassembles it.
type Debugger struct {
	Fiber   *Fiber
	Target  *Function
	TargetName string
	Info    *DebugInfo

	breakpoints map[uint32]struct{}
}

// NewDebugger wires a Fiber up to step through fn, having already pushed
// the HALT-wrapper and callee frames the same way Invoke does, so the
// debugger's single-step loop sees exactly the same stack layout a
// normal call would.
func NewDebugger(f *Fiber, fn FunctionIndex, args []uint64, info *DebugInfo) (*Debugger, error) {
	target := f.Program.Function(fn)
	if f.callTop+2 >= f.CallStackMax || f.dataTop+int(target.RegisterCount)+1 >= f.DataStackMax {
		return nil, fmt.Errorf("insufficient fiber capacity to start debug session")
	}

	wrapperBase := f.dataTop
	f.pushBlock(BlockFrame{StartPointer: 0, InstructionPtr: 0, OutIndex: 0})
	f.pushCall(CallFrame{Function: &haltWrapperFunction, RootBlock: f.blockTop, StackBase: wrapperBase})
	f.dataTop++

	calleeBase := f.dataTop
	start := target.Bytecode.Start(0)
	f.pushBlock(BlockFrame{StartPointer: start, InstructionPtr: start, OutIndex: 0})
	f.pushCall(CallFrame{Function: target, RootBlock: f.blockTop, StackBase: calleeBase})
	for i, a := range args {
		f.DataStack[calleeBase+i] = a
	}
	f.dataTop += int(target.RegisterCount)

	return &Debugger{
		Fiber:       f,
		Target:      target,
		TargetName:  info.functionName(fn),
		Info:        info,
		breakpoints: make(map[uint32]struct{}),
	}, nil
}

func (d *Debugger) printState() {
	fn, ip := d.Fiber.Position()
	fmt.Printf("%s @ %d (call_depth=%d, block_depth=%d)\n",
		d.Info.functionName(d.functionIndexOf(fn)), ip, d.Fiber.callTop+1, d.Fiber.blockTop+1)
}

func (d *Debugger) functionIndexOf(fn *Function) FunctionIndex {
	for i := range d.Fiber.Program.Functions {
		if &d.Fiber.Program.Functions[i] == fn {
			return FunctionIndex(i)
		}
	}
	return 0
}

// Run starts the interactive prompt loop. It returns the eventual trap
// (Okay on a clean HALT) once the session ends.
func (d *Debugger) Run() (uint64, Trap, error) {
	rl, err := readline.New("-> ")
	if err != nil {
		return 0, TrapUnreachable, fmt.Errorf("starting debugger prompt: %w", err)
	}
	defer rl.Close()

	fmt.Println("Commands:\n\tn or next: execute next instruction\n\tr or run: run to completion or next breakpoint\n\tb <ip>: toggle breakpoint\n\tprogram: disassemble")
	d.printState()

	waitForInput := true
	for {
		line := ""
		if waitForInput {
			line, err = rl.Readline()
			if err != nil {
				return 0, TrapUnreachable, err
			}
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			fn, ip := d.Fiber.Position()
			if _, hit := d.breakpoints[ip]; hit && fn == d.Target {
				fmt.Println("breakpoint")
				d.printState()
				waitForInput = true
				continue
			}
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			trap := EvalStep(d.Fiber)
			if waitForInput {
				if Running(trap) {
					d.printState()
				}
			}
			if !Running(trap) {
				return d.finish(trap)
			}

		case line == "program":
			fmt.Println(Disassemble(d.Fiber.Program, d.Info))

		case line == "r" || line == "run":
			waitForInput = false

		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "b"))
			ip, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				fmt.Println("unknown instruction offset:", err)
				continue
			}
			if _, ok := d.breakpoints[uint32(ip)]; ok {
				delete(d.breakpoints, uint32(ip))
			} else {
				d.breakpoints[uint32(ip)] = struct{}{}
			}
		}
	}
}

// finish unwinds the synthetic wrapper frame exactly as Invoke does on a
// clean Okay, and reports the trap unchanged otherwise.
func (d *Debugger) finish(trap Trap) (uint64, Trap, error) {
	if trap != Okay {
		return 0, trap, nil
	}
	wrapper := &d.Fiber.CallStack[0]
	result := d.Fiber.DataStack[wrapper.StackBase]
	d.Fiber.callTop = -1
	d.Fiber.blockTop = -1
	d.Fiber.dataTop = wrapper.StackBase
	return result, Okay, nil
}
