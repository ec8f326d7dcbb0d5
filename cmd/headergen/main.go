// Command headergen preprocesses and parses one C translation unit, then
// prints its active #defines and top-level declaration signatures. With
// -dump-tokens it instead writes the preprocessed token stream with
// #line markers, the classic ".i" style dump.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/cuikgo/internal/config"
	"github.com/standardbeagle/cuikgo/internal/search"
	"github.com/standardbeagle/cuikgo/pkg/cuik"
)

var cleanupFuncs []func()

func cleanup() {
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
}

func defaultSystem() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "linux"
}

func main() {
	app := &cli.App{
		Name:      "headergen",
		Usage:     "Preprocess and parse a C file, dumping its public surface",
		ArgsUsage: "<file.c>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "include",
				Aliases: []string{"I"},
				Usage:   "Additional #include search paths, tried in order",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target architecture",
				Value: "x86_64",
			},
			&cli.StringFlag{
				Name:  "system",
				Usage: "Target OS family (windows or linux)",
				Value: defaultSystem(),
			},
			&cli.BoolFlag{
				Name:  "thin-errors",
				Usage: "Render diagnostics as one-line headlines without previews",
			},
			&cli.BoolFlag{
				Name:  "dump-tokens",
				Usage: "Write the preprocessed token stream with #line markers and exit",
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("no input file!")
	}
	input := c.Args().First()

	cfg, err := config.Load(filepath.Dir(input))
	if err != nil {
		return err
	}
	if c.IsSet("target") || cfg.Target == "" {
		cfg.Target = c.String("target")
	}
	if c.IsSet("system") || cfg.System == "" {
		cfg.System = c.String("system")
	}
	if c.Bool("thin-errors") {
		cfg.ThinErrors = true
	}
	userPaths := append(cfg.Include, c.StringSlice("include")...)

	// System includes live in the crt tree two directories above the
	// executable; a missing tree is tolerated (purely self-contained
	// inputs still preprocess).
	var systemPaths []string
	if root, err := search.DiscoverCRTRoot(); err == nil {
		if libs, err := search.ResolveSystemLibs(root); err == nil {
			systemPaths = libs.Paths
		}
	}

	session := cuik.Init(&cuik.Options{ThinErrors: cfg.ThinErrors})

	cpp, err := session.NewCpp(cfg.Target, cfg.System, userPaths, systemPaths)
	if err != nil {
		return err
	}
	cleanupFuncs = append(cleanupFuncs, cpp.Deinit)
	for _, d := range cfg.Defines {
		cpp.Define(d.Key, d.Value)
	}

	tokens, err := cpp.PreprocessSimple(input)
	if err != nil {
		return err
	}

	if c.Bool("dump-tokens") {
		dumpTokens(os.Stdout, session, tokens)
		return nil
	}

	tu, err := session.ParseTranslationUnit(tokens, nil)
	if err != nil {
		return err
	}
	cleanupFuncs = append(cleanupFuncs, tu.Destroy)

	compUnit := session.CreateCompilationUnit()
	if err := compUnit.Add(tu); err != nil {
		return err
	}
	compUnit.InternalLink()

	cpp.ForDefines(func(d cuik.Define) {
		if tu.IsInMainFile(d.Loc) {
			fmt.Printf("#define %s %s\n", d.Key, d.Value)
		}
	})

	tu.VisitTopLevel(nil, func(_ any, d cuik.Decl) {
		if !tu.IsInMainFile(d.Loc) {
			return
		}
		fmt.Printf("func %s(%s);\n", d.Name, strings.Join(d.Params, ", "))
	})

	if session.HasErrors() {
		return fmt.Errorf("compilation finished with errors")
	}
	return nil
}

// dumpTokens writes the stream with a "#line N \"PATH\"" marker whenever
// the file changes and a "/* line N */" marker when only the line does.
// Tokens from synthetic files (macro-expansion output, command-line
// defines) keep the surrounding file's markers. Backslashes in paths are
// doubled so the emitted directive stays a valid C string.
func dumpTokens(out io.Writer, session *cuik.Session, tokens *cuik.TokenStream) {
	lastFile := ""
	lastLine := 0

	tokens.ForTokens(session, func(t cuik.TokenInfo) {
		if !t.Synthetic {
			if t.File != lastFile {
				escaped := strings.ReplaceAll(t.File, `\`, `\\`)
				fmt.Fprintf(out, "\n#line %d \"%s\"\t", t.Line, escaped)
				lastFile = t.File
				lastLine = t.Line
			} else if t.Line != lastLine {
				fmt.Fprintf(out, "\n/* line %3d */\t", t.Line)
				lastLine = t.Line
			}
		}
		fmt.Fprintf(out, "%s ", t.Text)
	})
	fmt.Fprintln(out)
}
