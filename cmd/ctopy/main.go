package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ctopy/pkg/cdecl"
	"ctopy/pkg/declfile"
	"ctopy/pkg/emit"
	"ctopy/pkg/interp"
	"ctopy/pkg/pyast"
	"ctopy/pkg/shims"
)

var version = "0.1.0"

// Dump and run flags
var (
	dDecls     bool
	dumpPython string
	invokeName string
	invokeArgs []string
)

// Translation options
var (
	configPath string
	outputPath string
	noShims    bool
	noCache    bool
	noColor    bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ctopy [file...]",
		Short: "ctopy translates C declaration graphs to ctypes-backed Python",
		Long: `ctopy consumes C declaration graphs and produces Python modules whose
data layout is carried by ctypes. Each input file yields one output
unit; alternatively a single function can be translated and run
directly on the built-in interpretation path.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				fmt.Fprintf(errOut, "ctopy: config error: %v\n", err)
				return err
			}
			if outputPath != "" {
				cfg.Output = outputPath
			}
			if noShims {
				cfg.Shims = false
			}
			if noCache {
				cfg.Cache = ""
			}

			if dDecls && dumpPython == "" && invokeName == "" {
				for _, f := range args {
					table, err := declfile.LoadFile(f)
					if err != nil {
						printError(errOut, "%s: %v", f, err)
						return err
					}
					dumpDecls(out, table)
				}
				return nil
			}
			if dumpPython != "" || invokeName != "" {
				if len(args) != 1 {
					return fmt.Errorf("function modes take exactly one input file")
				}
				return runFunctionMode(args[0], cfg, out, errOut)
			}
			return translateAll(args, cfg, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dDecls, "ddecls", false, "Dump the loaded declaration table")
	rootCmd.Flags().StringVar(&dumpPython, "dump-python", "", "Translate one function and dump its source")
	rootCmd.Flags().StringVar(&invokeName, "invoke", "", "Run one function on the interpretation path")
	rootCmd.Flags().StringArrayVar(&invokeArgs, "arg", nil, "Argument for --invoke (repeatable)")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Manifest file (default ctopy.toml if present)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory")
	rootCmd.Flags().BoolVar(&noShims, "no-shims", false, "Do not install C library shims")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the translation cache")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored diagnostics")

	return rootCmd
}

// translateAll processes each input file concurrently, one unit per
// file. Reports are per declaration and never abort a unit; a file-level
// failure fails the run after all files finish.
func translateAll(files []string, cfg *config, out, errOut io.Writer) error {
	cache, err := openCache(cfg.Cache)
	if err != nil {
		fmt.Fprintf(errOut, "ctopy: cache disabled: %v\n", err)
		cache = nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, file := range files {
		file := file
		g.Go(func() error {
			source, reports, err := translateFile(file, cfg, cache)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				printError(errOut, "%s: %v", file, err)
				return err
			}
			for _, r := range reports {
				printWarn(errOut, "%s", r)
			}
			return writeUnit(file, source, cfg, out)
		})
	}
	return g.Wait()
}

func translateFile(file string, cfg *config, cache *diskCache) (string, []emit.Report, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", nil, err
	}
	if cache != nil {
		if source, ok := cache.Get(raw); ok {
			return source, nil, nil
		}
	}
	table, err := declfile.Load(bytes.NewReader(raw), file)
	if err != nil {
		return "", nil, err
	}
	e := emit.New(table, cfg.Reserved)
	if cfg.Shims {
		shims.InstallNames(e.Globals)
	}
	unit, reports := e.Emit()
	var buf bytes.Buffer
	if err := unit.Render(&buf); err != nil {
		return "", reports, err
	}
	if cache != nil && len(reports) == 0 {
		cache.Put(raw, buf.String())
	}
	return buf.String(), reports, nil
}

func writeUnit(file, source string, cfg *config, out io.Writer) error {
	if cfg.Output == "" || cfg.Output == "-" {
		_, err := io.WriteString(out, source)
		return err
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return os.WriteFile(filepath.Join(cfg.Output, base+".py"), []byte(source), 0o644)
}

// runFunctionMode serves --dump-python and --invoke: both load a single
// file into the interpretation path.
func runFunctionMode(file string, cfg *config, out, errOut io.Writer) error {
	table, err := declfile.LoadFile(file)
	if err != nil {
		printError(errOut, "%s: %v", file, err)
		return err
	}
	if dDecls {
		dumpDecls(out, table)
	}
	i := interp.New(table)
	if cfg.Shims {
		shims.Install(i.Globals, i.Arena, shims.Config{Stdout: out, Stderr: errOut})
	}
	if dumpPython != "" {
		c, err := i.Func(dumpPython)
		if err != nil {
			printError(errOut, "%v", err)
			return err
		}
		pyast.NewPrinter(out).PrintStmt(*c.Def)
	}
	if invokeName != "" {
		args := make([]any, len(invokeArgs))
		for n, a := range invokeArgs {
			args[n] = parseInvokeArg(a)
		}
		result, err := i.Invoke(invokeName, args...)
		if err != nil {
			printError(errOut, "%v", err)
			return err
		}
		fmt.Fprintf(out, "%v\n", result)
	}
	return nil
}

// parseInvokeArg maps a command-line argument string to a host value:
// integers pass as integers, everything else as a C string.
func parseInvokeArg(s string) any {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil && fmt.Sprintf("%d", v) == s {
		return v
	}
	return s
}

func dumpDecls(out io.Writer, table *cdecl.Table) {
	for _, d := range table.Decls {
		name := d.DeclName()
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(out, "%T %s\n", d, name)
	}
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "ctopy: %s %s\n", color.RedString("error:"), fmt.Sprintf(format, args...))
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "ctopy: %s %s\n", color.YellowString("warning:"), fmt.Sprintf(format, args...))
}