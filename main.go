package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fibervm/examples"
	"fibervm/vm"
)

// CLI entry point: a cobra-based replacement for KTStephano-GVM/main.go's
// flag-based front end, restructured around subcommands (run, disasm,
// debug) instead of a single "-debug" flag plus trailing file args,
// grounded on stackedboxes-romualdo's cobra-based VM CLI.

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "fibervm",
		Short: "register-based bytecode VM",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a fiber budget TOML config")

	root.AddCommand(runCmd(), disasmCmd(), debugCmd(), listCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() vm.FiberConfig {
	if configPath == "" {
		return vm.DefaultFiberConfig()
	}
	cfg, err := vm.LoadFiberConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err, "- falling back to defaults")
		return vm.DefaultFiberConfig()
	}
	return cfg
}

func parseArgs(raw []string) ([]uint64, error) {
	args := make([]uint64, len(raw))
	for i, a := range raw {
		if f, err := strconv.ParseFloat(a, 64); err == nil && strings.ContainsAny(a, ".eE") {
			args[i] = uint64(vm.EncodeIM64F(f))
			continue
		}
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q is neither an integer nor a float", a)
		}
		args[i] = uint64(v)
	}
	return args, nil
}

func runCmd() *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "run <example> [args...]",
		Short: "invoke a bundled example program and print its result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			ex, ok := examples.Lookup(rawArgs[0])
			if !ok {
				return fmt.Errorf("unknown example %q (see `fibervm list`)", rawArgs[0])
			}
			args, err := parseArgs(rawArgs[1:])
			if err != nil {
				return err
			}

			program := ex.Build()
			if err := vm.Validate(program); err != nil {
				return fmt.Errorf("invalid program: %w", err)
			}

			cfg := loadConfig()
			fiber := cfg.NewFiber(program)
			if trace {
				fiber.Trace = vm.NewTracer()
			}

			if cfg.DisableGCDuring {
				prev := debug.SetGCPercent(-1)
				defer debug.SetGCPercent(prev)
			}

			result, trap := vm.Invoke(fiber, ex.Entry, args)
			if trap != vm.Okay {
				fmt.Printf("trap: %s\n", trap)
				os.Exit(trap.ExitCode())
			}
			fmt.Printf("result: %d (float64 %v)\n", result, vm.DecodeIM64F(vm.Instruction(result)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "log every dispatched instruction")
	return cmd
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <example>",
		Short: "disassemble a bundled example program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			ex, ok := examples.Lookup(rawArgs[0])
			if !ok {
				return fmt.Errorf("unknown example %q (see `fibervm list`)", rawArgs[0])
			}
			fmt.Print(vm.Disassemble(ex.Build(), nil))
			return nil
		},
	}
}

func debugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug <example> [args...]",
		Short: "single-step a bundled example program interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			ex, ok := examples.Lookup(rawArgs[0])
			if !ok {
				return fmt.Errorf("unknown example %q (see `fibervm list`)", rawArgs[0])
			}
			args, err := parseArgs(rawArgs[1:])
			if err != nil {
				return err
			}

			program := ex.Build()
			cfg := loadConfig()
			fiber := cfg.NewFiber(program)

			if cfg.DisableGCDuring {
				prev := debug.SetGCPercent(-1)
				defer debug.SetGCPercent(prev)
			}

			dbg, err := vm.NewDebugger(fiber, ex.Entry, args, nil)
			if err != nil {
				return err
			}
			result, trap, err := dbg.Run()
			if err != nil {
				return err
			}
			if trap != vm.Okay {
				fmt.Printf("trap: %s\n", trap)
				os.Exit(trap.ExitCode())
			}
			fmt.Printf("result: %d\n", result)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list bundled example programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, ex := range examples.All {
				fmt.Printf("%-16s %s\n", ex.Name, ex.Description)
			}
			return nil
		},
	}
}
