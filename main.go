//go:build !js

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"stackcc/pkg/asm"
	"stackcc/pkg/compiler"
	"stackcc/pkg/config"
	"stackcc/pkg/utils"
	"stackcc/pkg/vm"
)

func main() {
	inPath := flag.String("in", "", "input C source (.c) or assembly listing (.sasm)")
	outPath := flag.String("out", "", "output container path (default: <output dir>/<name>.sccx)")
	runProgram := flag.Bool("run", false, "run the built container on the VM")
	runBinPath := flag.String("run-bin", "", "run an existing container on the VM")
	steps := flag.Int("steps", -1, "instruction budget for -run (overrides vm.max_steps, 0 for no limit)")
	configPath := flag.String("config", "", "path to stackcc.toml (default: search upwards from the input)")
	flag.Parse()

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}
	if *inPath == "" && *runBinPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to build, -run to also run it, or -run-bin <file> to run an existing container")
		flag.Usage()
		os.Exit(2)
	}
	if *runProgram && *inPath == "" {
		fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
		os.Exit(2)
	}

	start := *inPath
	if start == "" {
		start = *runBinPath
	}
	cfg, cfgFile, err := loadConfig(start, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *steps >= 0 {
		cfg.VM.MaxSteps = *steps
	}

	var container *vm.Container
	if *inPath != "" {
		container, err = build(*inPath, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		output := *outPath
		if output == "" {
			output = utils.OutputPath(*inPath, cfg.OutputDir(cfgFile, filepath.Dir(*inPath)), utils.ContainerExt)
		}
		if err := writeContainer(output, container); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write container %q: %v\n", output, err)
			os.Exit(1)
		}
		fmt.Printf("built %d bytes of code -> %s\n", len(container.Image.Code), output)
	}

	switch {
	case *runBinPath != "":
		container, err = vm.ReadContainerFile(*runBinPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read container %q: %v\n", *runBinPath, err)
			os.Exit(1)
		}
	case !*runProgram:
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	m, err := run(ctx, container, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", container.Manifest.Name, err)
		os.Exit(1)
	}
	fmt.Printf("run complete (%s): steps=%d result=%s\n", container.Manifest.Name, m.Steps, m.Result)
	if m.Result.Kind == vm.KindInt {
		os.Exit(int(m.Result.I & 0xff))
	}
}

func loadConfig(input, explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		return cfg, explicit, err
	}
	return config.FindAndLoad(filepath.Dir(input))
}

// build compiles a C file, or assembles a listing, into a container.
func build(path string, cfg *config.Config) (*vm.Container, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := utils.BaseName(path)

	if strings.HasSuffix(path, utils.SourceExt) {
		out, err := compiler.Compile(string(source), compiler.Options{
			Entry: cfg.Compiler.Entry,
			Prune: cfg.Compiler.Prune,
		})
		if err != nil {
			return nil, err
		}
		listing := ""
		if cfg.Output.Listing {
			listing = out.Listing
		}
		return vm.NewContainer(name, out.Image, listing), nil
	}

	img, err := asm.Assemble(string(source))
	if err != nil {
		return nil, err
	}
	return vm.NewContainer(name, img, string(source)), nil
}

func writeContainer(path string, c *vm.Container) error {
	data, err := c.Bytes()
	if err != nil {
		return err
	}
	return utils.WriteFile(path, data)
}

// run executes the container's program with the configured limits.
func run(ctx context.Context, c *vm.Container, cfg *config.Config, out io.Writer) (*vm.VM, error) {
	m := vm.New(c.Image)
	m.Output = out
	m.MaxSteps = cfg.VM.MaxSteps
	m.StackLimit = cfg.VM.StackLimit
	if err := m.Run(ctx); err != nil {
		return m, err
	}
	return m, nil
}
