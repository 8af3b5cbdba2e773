// Command dvm is a thin convenience wrapper so `go run .` at the repo root
// behaves the same as the cmd/vm binary: load a program image, run it to
// completion, map its exit code onto the process exit code. The disasm and
// assemble subcommands exist only in cmd/vm.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"dvm/internal/config"
	"dvm/vm"
)

func main() {
	debug := flag.Bool("debug", false, "enable the debug instruction's output stream")
	dumpOnFault := flag.Bool("dump-on-fault", false, "print a stack dump to stderr when run fails")
	configPath := flag.String("config", "", "optional TOML config file (section 10.3)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-debug] [-dump-on-fault] [-config path] <file.v>\n", os.Args[0])
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFrom(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var debugWriter io.Writer
	if *debug || cfg.Debug.Enabled {
		debugWriter = os.Stderr
	}

	machine := vm.NewSized(os.Stdin, os.Stdout, debugWriter, cfg.IO.StdinBufferBytes, cfg.IO.StdoutBufferBytes)
	if err := machine.Load(data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	exitCode, err := machine.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if *dumpOnFault || cfg.Debug.DumpOnFault {
			fmt.Fprintf(os.Stderr, "pc=%d sp=%d\n", machine.PC, machine.SP)
			for i := machine.SP; i < vm.MemWords; i++ {
				fmt.Fprintf(os.Stderr, "%04X: %08X\n", i, machine.Mem[i])
			}
		}
		os.Exit(1)
	}

	os.Exit(int(exitCode))
}
