package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/conformance"
	"github.com/ddexnet/dsrf/reader"
	"github.com/ddexnet/dsrf/report"
	"github.com/ddexnet/dsrf/schema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "parse":
		parseCmd(os.Args[2:])
	case "conform":
		conformCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `dsrf CLI

Usage:
  dsrf parse   [flags] file1.tsv [file2.tsv ...]
  dsrf conform [flags] -profile NAME file1.tsv [file2.tsv ...]

parse decodes the report files into JSON-line block records on stdout.
conform additionally validates every body block against the profile's
content model. Files are numbered by their position on the command line.`)
}

// runConfig is the optional YAML run configuration; flags override it.
type runConfig struct {
	LogPath   string `yaml:"log_path"`
	FailFast  bool   `yaml:"fail_fast"`
	SchemaDir string `yaml:"schema_dir"`
	XSDPath   string `yaml:"xsd_path"`
	AVSPath   string `yaml:"avs_path"`
	Profile   string `yaml:"profile"`
	Version   string `yaml:"version"`
}

func loadConfig(path string) runConfig {
	cfg := runConfig{LogPath: "dsrf.log", Version: dsrf.DefaultVersion}
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading config: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fatalf("parsing config: %v", err)
	}
	return cfg
}

// addCommonFlags binds the flags shared by both subcommands over the config
// defaults.
func addCommonFlags(fs *flag.FlagSet, cfg *runConfig) {
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "path of the log file")
	fs.BoolVar(&cfg.FailFast, "fail-fast", cfg.FailFast, "abort on the first validation error")
	fs.StringVar(&cfg.SchemaDir, "schema-dir", cfg.SchemaDir, "root directory of the versioned schema documents")
	fs.StringVar(&cfg.XSDPath, "xsd", cfg.XSDPath, "the dsrf xsd schema file (rows and profiles definition)")
	fs.StringVar(&cfg.AVSPath, "avs", cfg.AVSPath, "the allowed-value-sets xsd file")
	fs.StringVar(&cfg.Version, "version", cfg.Version, "the format version")
}

func readerConfig(cfg runConfig) reader.Config {
	xsdPath := cfg.XSDPath
	if xsdPath == "" && cfg.SchemaDir != "" && cfg.Version != "" {
		xsdPath = schema.LocateXSD(cfg.SchemaDir, cfg.Version)
	}
	return reader.Config{
		DSRFXSDPath: xsdPath,
		AVSXSDPath:  cfg.AVSPath,
		SchemaDir:   cfg.SchemaDir,
	}
}

func reportFiles(args []string) []report.File {
	files := make([]report.File, len(args))
	for i, path := range args {
		files[i] = report.File{Path: path, Number: i + 1}
	}
	return files
}

func parseCmd(args []string) {
	cfg := loadConfig(peekConfig(args))
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.String("config", "", "optional YAML run configuration")
	addCommonFlags(fs, &cfg)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	log, err := dsrf.NewLogger(cfg.LogPath, cfg.FailFast)
	if err != nil {
		fatalf("%v", err)
	}
	manager := report.NewManager(log, readerConfig(cfg), report.NewJSONLinesSink(os.Stdout))
	if err := manager.ParseReport(reportFiles(fs.Args())); err != nil {
		fatalf("%v", err)
	}
	errors, warnings := log.Counts()
	fmt.Fprintf(os.Stderr, "Parsed %d file(s): %d error(s), %d warning(s).\n",
		fs.NArg(), errors, warnings)
}

func conformCmd(args []string) {
	cfg := loadConfig(peekConfig(args))
	fs := flag.NewFlagSet("conform", flag.ExitOnError)
	fs.String("config", "", "optional YAML run configuration")
	fs.StringVar(&cfg.Profile, "profile", cfg.Profile, "the profile to validate the report blocks against")
	addCommonFlags(fs, &cfg)
	_ = fs.Parse(args)
	if cfg.Profile == "" || fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	rc := readerConfig(cfg)
	if rc.DSRFXSDPath == "" {
		fatalf("conform requires -xsd or -schema-dir")
	}
	node, profiles, err := conformance.NewProfileParser(rc.DSRFXSDPath).ParseProfile(cfg.Profile)
	if err != nil {
		fatalf("%v", err)
	}
	if node == nil {
		fatalf("The profile you entered %s does not exist in the dsrf xsd file: %s. Valid profiles: %v",
			cfg.Profile, rc.DSRFXSDPath, profiles)
	}
	log, err := dsrf.NewLogger(cfg.LogPath, cfg.FailFast)
	if err != nil {
		fatalf("%v", err)
	}
	processor := conformance.NewProcessor(node)
	totalBlocks, totalRows := 0, 0
	for i, path := range fs.Args() {
		stream, err := reader.NewFileReader(log, rc, path).Parse(i + 1)
		if err != nil {
			fatalf("%v", err)
		}
		blocks, rows, err := processor.ProcessReport(stream)
		stream.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[Conformance validation] %v%s", err, conformance.QuantifierLegend)
			os.Exit(1)
		}
		totalBlocks += blocks
		totalRows += rows
	}
	if err := log.Finalize(); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("The conformance validation passed successfully! Validated %d blocks (%d rows).\n",
		totalBlocks, totalRows)
}

// peekConfig finds -config before the flag set is parsed, so the config file
// values can serve as the defaults that explicit flags override.
func peekConfig(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
