// oascanon lists the entities of API description documents with their
// canonical ids and canonical schemas.
//
// Each FILE is a Swagger 2.0, OpenAPI 3.x, AsyncAPI 2.x or JSON Schema
// document in YAML or JSON. "-" reads standard input. On a terminal the
// entities are printed as a table; otherwise, or with --format yaml, they
// are written as YAML with the canonical schema graphs embedded.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/oascanon/canon"
	"github.com/speakeasy-api/oascanon/pkg/docio"
	"github.com/speakeasy-api/oascanon/pkg/inventory"
)

type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitError) ExitCode() int { return int(e) }

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

type config struct {
	format     string
	logLevel   string
	keep       []string
	inlineRefs bool
	dialect    string
	extension  string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cfg config
	flagSet := pflag.NewFlagSet("oascanon", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.format, "format", "f", "", "output format: table or yaml (default: table on a terminal, yaml otherwise)")
	flagSet.StringVar(&cfg.logLevel, "log-level", "warn", "log level: error, warn, info or debug")
	flagSet.StringSliceVar(&cfg.keep, "keep", nil, "vendor keys to copy through onto entities (repeatable)")
	flagSet.BoolVar(&cfg.inlineRefs, "inline-refs", false, "resolve local references nested inside schemas")
	flagSet.StringVar(&cfg.dialect, "dialect", "", "$schema written onto canonical schemas (default: JSON Schema draft-07)")
	flagSet.StringVar(&cfg.extension, "extension-key", "", `vendor key carrying canonical ids (default: "x-canonical")`)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	files := flagSet.Args()
	if len(files) == 0 {
		printHelp(stderr, flagSet)
		return exitError(2)
	}

	format := cfg.format
	if format == "" {
		format = "yaml"
		if f, ok := stdout.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "table"
		}
	}
	if format != "table" && format != "yaml" {
		return fmt.Errorf("unknown format %q", cfg.format)
	}

	opts := canon.Options{
		CanonicalDialect: cfg.dialect,
		ExtensionKey:     cfg.extension,
		KeepProperties:   cfg.keep,
		InlineLocalRefs:  cfg.inlineRefs,
		Logger:           canon.NewLogger(canon.ParseLogLevel(cfg.logLevel), stderr),
	}

	var failures []docio.Failure
	for i, file := range files {
		doc, err := load(file, stdin)
		if err != nil {
			failures = append(failures, docio.Failure{File: file, Err: err})
			continue
		}

		ctx := canon.NewContext(doc, opts)
		entries := inventory.Collect(ctx)
		ctx.Close()

		if err := write(stdout, format, file, i, len(files), entries); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		fmt.Fprintln(stderr, docio.FormatFailures(failures))
		return exitError(1)
	}
	return nil
}

func load(file string, stdin io.Reader) (*yaml.Node, error) {
	if file != "-" {
		return docio.ReadFile(file)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return docio.Parse(data)
}

func write(w io.Writer, format, file string, index, total int, entries []inventory.Entry) error {
	if format == "table" {
		if total > 1 {
			if index > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", file)
		}
		return inventory.Render(w, entries)
	}
	if index > 0 {
		fmt.Fprintln(w, "---")
	}
	return docio.Encode(w, inventory.Document(entries))
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `oascanon lists the entities of API description documents with their
canonical ids and canonical schemas.

Usage:
  oascanon [flags] FILE...

Examples:
  # Print a table of the entities of an OpenAPI document
  oascanon petstore.yaml

  # Write canonical schemas as YAML, keeping x-internal markers
  cat petstore.json | oascanon --format yaml --keep x-internal -

Flags:
%s`, strings.TrimRight(flagSet.FlagUsages(), "\n")+"\n")
}
