// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command m6502asm assembles 6502/C64 source files into .prg images.
// Grounded in go6502's main.go entry point, replacing its stdlib flag
// scaffolding with cobra (spec.md's CLI ambient-stack pick) since this
// assembler has no interactive host/debugger REPL to fall back into --
// the command either assembles or it doesn't.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/retrocc/m6502asm/asm"
	"github.com/retrocc/m6502asm/disasm"
)

var (
	outputPath  string
	debugPath   string
	disassemble bool
	verbose     bool
)

func main() {
	root := &cobra.Command{
		Use:   "m6502asm <file>",
		Short: "Assemble a 6502/C64 macro-assembly source file into a .prg image",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssemble,
	}
	root.Flags().StringVarP(&outputPath, "output", "o", "", "output .prg path (default: input path with .prg extension)")
	root.Flags().StringVar(&debugPath, "debug-info", "", "write debug info to this path")
	root.Flags().BoolVar(&disassemble, "disassemble", false, "print a disassembly of the resulting image to stdout")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each resolution pass")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAssemble(cmd *cobra.Command, args []string) error {
	path := args[0]

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	result, err := asm.Assemble(path, asm.Options{Logger: log})
	if err != nil {
		return err
	}

	hadError := false
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d.Format())
		if d.Severity == asm.SeverityError {
			hadError = true
		}
	}
	if hadError {
		return fmt.Errorf("assembly of '%s' failed", path)
	}

	out := outputPath
	if out == "" {
		out = prgPath(path)
	}
	if err := os.WriteFile(out, result.ProgramBytes, 0644); err != nil {
		return err
	}

	if debugPath != "" {
		f, err := os.Create(debugPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := result.DebugInfo.WriteTo(f); err != nil {
			return err
		}
	}

	if disassemble {
		image := result.ProgramBytes[2:]
		lines := disasm.Disassemble(image, result.DebugInfo.Origin, result.DebugInfo.IsInstructionStart, disasm.Options{ShowCycles: true})
		for _, line := range lines {
			fmt.Println(line)
		}
	}

	return nil
}

func prgPath(source string) string {
	for i := len(source) - 1; i >= 0 && source[i] != '/'; i-- {
		if source[i] == '.' {
			return source[:i] + ".prg"
		}
	}
	return source + ".prg"
}
