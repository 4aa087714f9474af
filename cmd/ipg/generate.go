package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ava12/ipg/internal/emit"
	"github.com/ava12/ipg/internal/gram"
)

type generateOptions struct {
	Output      string
	Package     string
	Var         string
	Verbose     bool
	DumpGrammar bool
	WithDriver  bool
}

func newGenerateCmd(fs afero.Fs, v *viper.Viper) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <grammar-file>",
		Short: "parse a grammar file and emit a Go parser for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bindEnv(v)
			if err := bindGenerateFlags(cmd, v); err != nil {
				return err
			}
			if err := loadConfig(cmd, v); err != nil {
				return err
			}
			applyGenerateFlags(v, &opts)

			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			}

			return runGenerate(fs, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, default is <grammar-file> with .go suffix")
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "Go package name for the emitted parser, default is the output directory's base name")
	cmd.Flags().StringVarP(&opts.Var, "var", "v", "Parser", "exported type name for the emitted parser struct")
	cmd.Flags().BoolVar(&opts.Verbose, "verbose", false, "log at debug level")
	cmd.Flags().BoolVar(&opts.DumpGrammar, "dump-grammar", false, "print the parsed grammar model and exit without emitting")
	cmd.Flags().BoolVar(&opts.WithDriver, "with-driver", false, "additionally emit a runnable main package alongside the parser")

	return cmd
}

func bindGenerateFlags(cmd *cobra.Command, v *viper.Viper) error {
	return v.BindPFlags(cmd.Flags())
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".ipg")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	log.WithField("file", v.ConfigFileUsed()).Debug("loaded config file")
	return nil
}

func applyGenerateFlags(v *viper.Viper, opts *generateOptions) {
	if v.IsSet("output") {
		opts.Output = v.GetString("output")
	}
	if v.IsSet("package") {
		opts.Package = v.GetString("package")
	}
	if v.IsSet("var") {
		opts.Var = v.GetString("var")
	}
	if v.IsSet("verbose") {
		opts.Verbose = v.GetBool("verbose")
	}
}

func runGenerate(fs afero.Fs, w io.Writer, grammarPath string, opts generateOptions) error {
	content, err := afero.ReadFile(fs, grammarPath)
	if err != nil {
		return fmt.Errorf("reading grammar file: %w", err)
	}

	g, err := gram.Parse(grammarPath, content)
	if err != nil {
		log.WithField("file", grammarPath).Error(err.Error())
		return err
	}

	if errs := gram.Validate(g); len(errs) > 0 {
		for _, e := range errs {
			log.Error(e.Error())
		}
		return fmt.Errorf("grammar validation failed: %d error(s)", len(errs))
	}

	if opts.DumpGrammar {
		fmt.Fprintln(w, gram.Dump(g))
		return nil
	}

	outPath := opts.Output
	if outPath == "" {
		ext := filepath.Ext(grammarPath)
		outPath = grammarPath[:len(grammarPath)-len(ext)] + ".go"
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = filepath.Base(filepath.Dir(outPath))
		if pkg == "." || pkg == "" || pkg == string(filepath.Separator) {
			pkg = "main"
		}
	}

	out, err := emit.Emit(g, emit.Options{
		Package:    pkg,
		VarName:    opts.Var,
		WithDriver: opts.WithDriver,
		ImportPath: importPathFor(fs, outPath, pkg),
	})
	if err != nil {
		return fmt.Errorf("emitting parser: %w", err)
	}

	if err := afero.WriteFile(fs, outPath, []byte(out.Parser), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	log.WithField("file", outPath).Info("wrote parser")

	if opts.WithDriver {
		driverPath := filepath.Join(filepath.Dir(outPath), "cmd", filepath.Base(strings.TrimSuffix(outPath, ".go"))+"_driver.go")
		if err := afero.WriteFile(fs, driverPath, []byte(out.Driver), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", driverPath, err)
		}
		log.WithField("file", driverPath).Info("wrote driver")
	}

	return nil
}

// importPathFor derives the import path a generated driver's "gen" import
// should use: the enclosing module's declared module path, joined with the
// output file's directory relative to that module's root. It walks up from
// outPath's directory looking for the nearest go.mod. When none is found
// (e.g. the output isn't rooted in a module at all, only the narrow case a
// bare in-memory test filesystem exercises) it falls back to the bare
// package name, which is not a usable import path outside that narrow case.
func importPathFor(fs afero.Fs, outPath, pkg string) string {
	dir := filepath.Dir(outPath)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	modDir, modPath, ok := findModule(fs, dir)
	if !ok {
		return pkg
	}

	rel, err := filepath.Rel(modDir, dir)
	if err != nil || rel == "." {
		return modPath
	}
	return path.Join(modPath, filepath.ToSlash(rel))
}

// findModule walks dir and its ancestors looking for a go.mod, returning the
// directory it was found in and the module path it declares.
func findModule(fs afero.Fs, dir string) (modDir, modPath string, ok bool) {
	for {
		modFile := filepath.Join(dir, "go.mod")
		if exists, _ := afero.Exists(fs, modFile); exists {
			content, err := afero.ReadFile(fs, modFile)
			if err != nil {
				return "", "", false
			}
			mp, found := parseModulePath(content)
			return dir, mp, found
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false
		}
		dir = parent
	}
}

// parseModulePath extracts the path named by a go.mod's "module" directive.
func parseModulePath(content []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module ")), true
		}
	}
	return "", false
}
