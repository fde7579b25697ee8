// Command ccompiler runs the stackcc front end over C source files and
// either dumps one of its stages or writes a program container per file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stackcc/pkg/compiler"
	"stackcc/pkg/config"
	"stackcc/pkg/utils"
	"stackcc/pkg/vm"
)

// options is what the flags select for every file.
type options struct {
	tokens     bool
	tree       string // "", "exp", "stat" or "unit"
	sem        bool
	listing    bool
	configPath string
	verbose    bool
}

// result is the outcome of one file. Output is printed in argument order
// once every file is done.
type result struct {
	path   string
	output string
	err    error
}

func main() {
	var opts options
	flag.BoolVar(&opts.tokens, "tokens", false, "print the token stream and stop")
	flag.StringVar(&opts.tree, "tree", "", "print the syntax tree of the input parsed as exp, stat or unit")
	flag.BoolVar(&opts.sem, "sem", false, "analyze and print the global scope")
	flag.BoolVar(&opts.listing, "S", false, "print the assembly listing instead of writing a container")
	flag.StringVar(&opts.configPath, "config", "", "path to stackcc.toml (default: search upwards from each file)")
	flag.BoolVar(&opts.verbose, "v", false, "log pipeline stages and timings")
	jobs := flag.Int("j", runtime.NumCPU(), "number of files compiled in parallel")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("ccompiler: ")

	switch opts.tree {
	case "", "exp", "stat", "unit":
	default:
		log.Fatalf("-tree must be exp, stat or unit, not %q", opts.tree)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ccompiler [flags] file.c...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	results, err := compileAll(context.Background(), flag.Args(), opts, *jobs)
	failed := false
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Print(r.output)
		if r.err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.path, r.err)
			failed = true
		}
	}
	if err != nil {
		log.Fatal(err)
	}
	if failed {
		os.Exit(1)
	}
}

// compileAll processes every path with at most jobs files in flight.
// Diagnostics stay with their file; only I/O failures stop the group.
func compileAll(ctx context.Context, paths []string, opts options, jobs int) ([]*result, error) {
	results := make([]*result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := compileFile(path, opts)
			results[i] = r
			return err
		})
	}
	return results, g.Wait()
}

// compileFile runs one file through the stages opts asks for. The returned
// error is reserved for failures outside the compiler itself.
func compileFile(path string, opts options) (*result, error) {
	r := &result{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	src := string(data)

	cfg, cfgPath, err := loadConfig(path, opts.configPath)
	if err != nil {
		return r, err
	}
	if opts.verbose && cfgPath != "" {
		log.Printf("%s: using %s", path, cfgPath)
	}

	var out strings.Builder
	defer func() { r.output = out.String() }()

	switch {
	case opts.tokens:
		tokens, err := compiler.Lex(src)
		for _, tok := range tokens {
			fmt.Fprintln(&out, tok)
		}
		r.err = err
		return r, nil

	case opts.tree != "":
		var node compiler.Node
		switch opts.tree {
		case "exp":
			node, err = compiler.ParseExpression(src)
		case "stat":
			node, err = compiler.ParseStatement(src)
		default:
			node, err = compiler.ParseTranslationUnit(src)
		}
		if err != nil {
			r.err = err
			return r, nil
		}
		out.WriteString(compiler.Render(node))
		return r, nil

	case opts.sem:
		unit, err := compiler.ParseTranslationUnit(src)
		if err == nil {
			env := compiler.NewEnvironment()
			err = compiler.Analyze(unit, env)
			out.WriteString(env.Globals().String())
		}
		r.err = err
		return r, nil
	}

	start := time.Now()
	compiled, err := compiler.Compile(src, compiler.Options{
		Entry: cfg.Compiler.Entry,
		Prune: cfg.Compiler.Prune,
	})
	if opts.verbose {
		log.Printf("%s: compiled in %s", path, time.Since(start))
	}
	if err != nil {
		r.err = err
		return r, nil
	}
	if opts.listing {
		out.WriteString(compiled.Listing)
		return r, nil
	}

	dir := cfg.OutputDir(cfgPath, filepath.Dir(path))
	listing := ""
	if cfg.Output.Listing {
		listing = compiled.Listing
	}
	container := vm.NewContainer(utils.BaseName(path), compiled.Image, listing)
	target := utils.OutputPath(path, dir, utils.ContainerExt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return r, err
	}
	if err := container.WriteFile(target); err != nil {
		return r, fmt.Errorf("write %s: %w", target, err)
	}
	if cfg.Output.Listing {
		sasm := utils.OutputPath(path, dir, utils.ListingExt)
		if err := utils.WriteFile(sasm, []byte(compiled.Listing)); err != nil {
			return r, fmt.Errorf("write %s: %w", sasm, err)
		}
	}
	fmt.Fprintf(&out, "%s -> %s (%d bytes of code)\n", path, target, len(compiled.Image.Code))
	return r, nil
}

// loadConfig reads the explicit config file when one is given and searches
// upwards from the source otherwise.
func loadConfig(src, explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		return cfg, explicit, err
	}
	return config.FindAndLoad(filepath.Dir(src))
}
