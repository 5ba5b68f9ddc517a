// main.go wires the babyduck binary's two subcommands onto the compiler
// middle-end and virtual machine. Grounded on vslc's src/main.go staged-
// pipeline shape (a fixed sequence of named stages, first error wins), with
// the flag-parsing layer replaced by github.com/spf13/cobra in place of
// vslc's hand-rolled util.ParseArgs.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"babyduck/src/bundle"
	"babyduck/src/ir"
	"babyduck/src/parser"
	"babyduck/src/vm"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "babyduck",
		Short: "BabyDuck compiler and virtual machine",
	}
	root.AddCommand(compileCmd(), runCmd())
	return root
}

type compileConfig struct {
	out     string
	verbose bool
	jobs    int
}

func compileCmd() *cobra.Command {
	cfg := &compileConfig{}
	cmd := &cobra.Command{
		Use:   "compile <src>.baby",
		Short: "Compile a BabyDuck source file to an object bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.out, "out", "o", "", "base name for .obj/.ovejota output (defaults to the source's base name)")
	cmd.Flags().BoolVarP(&cfg.verbose, "verbose", "v", false, "print memory manager / symbol table debug dumps")
	cmd.Flags().IntVarP(&cfg.jobs, "jobs", "j", 0, "enable the post-compile verification pass (0 disables it, 1 runs it sequentially, more runs one goroutine per scope region)")
	return cmd
}

func runCompile(srcPath string, cfg *compileConfig) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ParseError: %s\n", err)
		return err
	}

	res, err := ir.Generate(prog)
	if err != nil {
		printCompileError(err)
		return err
	}

	if cfg.jobs > 0 {
		if err := ir.Verify(res.Quads, res.ST.Functions(), cfg.jobs); err != nil {
			printCompileError(err)
			return err
		}
	}

	base := cfg.out
	if base == "" {
		base = strings.TrimSuffix(srcPath, ".baby")
	}

	b := bundle.FromResult(srcPath, time.Now().Unix(), res)
	if err := os.WriteFile(base+".obj", bundle.Encode(b), 0o644); err != nil {
		return fmt.Errorf("write object bundle: %w", err)
	}
	if err := os.WriteFile(base+".ovejota", []byte(bundle.Dump(b)), 0o644); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	if cfg.verbose {
		fmt.Println(res.Mem.String())
		fmt.Println(res.ST.String())
	}

	return nil
}

func printCompileError(err error) {
	if ce, ok := asCompileError(err); ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", ce.Kind(), ce.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
}

func asCompileError(err error) (ir.CompileError, bool) {
	for err != nil {
		if ce, ok := err.(ir.CompileError); ok {
			return ce, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <base>[.obj]",
		Short: "Execute a compiled BabyDuck object bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(args[0])
		},
	}
	return cmd
}

func runExecute(path string) error {
	if !strings.HasSuffix(path, ".obj") {
		path += ".obj"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read object bundle: %w", err)
	}

	b, err := bundle.Decode(data)
	if err != nil {
		return fmt.Errorf("decode object bundle: %w", err)
	}

	machine := vm.New(b.ToProgram(), func(line string) { fmt.Println(line) })
	if err := machine.Run(); err != nil {
		if re, ok := err.(vm.RuntimeError); ok {
			fmt.Fprintf(os.Stderr, "%s: %s\n", re.Kind(), re.Error())
		} else {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		return err
	}
	return nil
}
