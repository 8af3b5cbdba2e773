// Command vm is the host CLI around the dvm interpreter: it reads a program
// file, loads it into a fresh vm.VM, runs it to completion, and maps the
// result onto the process exit code, per SPEC_FULL.md section 6.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"dvm/asm"
	"dvm/internal/config"
	"dvm/vm"
)

func main() {
	debug := flag.Bool("debug", false, "enable the debug instruction's output stream")
	dumpOnFault := flag.Bool("dump-on-fault", false, "print a stack dump to stderr when run fails")
	configPath := flag.String("config", "", "optional TOML config file (section 10.3)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-debug] [-dump-on-fault] [-config path] <file.v>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s disasm <file.v>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s assemble <file.s> <file.v>\n", os.Args[0])
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 2 && args[0] == "disasm" {
		if err := runDisasm(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
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

	if len(args) == 3 && args[0] == "assemble" {
		if err := runAssemble(args[1], args[2], cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(args[0], cfg, *debug, *dumpOnFault))
}

func run(path string, cfg *config.Config, debugFlag, dumpOnFaultFlag bool) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	var debugWriter io.Writer
	if debugFlag || cfg.Debug.Enabled {
		debugWriter = os.Stderr
	}

	machine := vm.NewSized(os.Stdin, os.Stdout, debugWriter, cfg.IO.StdinBufferBytes, cfg.IO.StdoutBufferBytes)
	dumpOnFault := dumpOnFaultFlag || cfg.Debug.DumpOnFault
	if err := machine.Load(data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	exitCode, err := machine.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if dumpOnFault {
			dumpStack(os.Stderr, machine)
		}
		return 1
	}

	return int(exitCode)
}

// dumpStack is the CLI's own rendering of the post-mortem dump for a VM that
// faulted mid-instruction, using the VM's exported Mem/PC/SP fields directly
// since the fault already aborted the in-VM Dump instruction path.
func dumpStack(w io.Writer, machine *vm.VM) {
	fmt.Fprintf(w, "pc=%d sp=%d\n", machine.PC, machine.SP)
	for i := machine.SP; i < vm.MemWords; i++ {
		fmt.Fprintf(w, "%04X: %08X\n", i, machine.Mem[i])
	}
}

// runAssemble compiles mnemonic source into a program image. The entry label
// from the config's [assembler] section, if it names a label present in
// source, is given a leading jump so execution starts there rather than at
// word 0.
func runAssemble(srcPath, outPath string, cfg *config.Config) error {
	source, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	out, err := asm.AssembleEntry(string(source), cfg.Assembler.EntryLabel)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, out, 0o644)
}

func runDisasm(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 4 {
		return fmt.Errorf("%s: too short to contain a magic header", path)
	}
	if data[0] != 0xDE || data[1] != 0xAD || data[2] != 0xBE || data[3] != 0xEF {
		return fmt.Errorf("%s: bad magic header", path)
	}

	body := data[4:]
	for i := 0; i+4 <= len(body); i += 4 {
		word := binary.LittleEndian.Uint32(body[i : i+4])
		fmt.Printf("%04d: %s\n", i/4, asm.Disassemble(word))
	}
	return nil
}
