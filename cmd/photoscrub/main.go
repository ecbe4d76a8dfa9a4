package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"photoscrub/core"
	"photoscrub/core/audio"
	"photoscrub/core/scrub"
	"photoscrub/internal/config"
	"photoscrub/internal/daemon"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "inspect":
		handleInspect(os.Args[2:])
	case "scrub":
		handleScrub(os.Args[2:])
	case "audio":
		handleAudio(os.Args[2:])
	case "watch":
		handleWatch(os.Args[2:])
	case "formats":
		handleFormats(os.Args[2:])
	case "version", "--version":
		fmt.Printf("photoscrub v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		core.PrintError("unknown command: " + os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// ─── inspect ─────────────────────────────────────────────────────────────────

func handleInspect(args []string) {
	flags := pflag.NewFlagSet("inspect", pflag.ExitOnError)
	jsonOut := flags.Bool("json", false, "machine-readable JSON output")
	verbose := flags.BoolP("verbose", "v", false, "include camera settings")
	flags.Parse(args)

	if flags.NArg() == 0 {
		core.PrintError("no files given")
		fmt.Println(styleDim.Render("usage: photoscrub inspect [--json] [-v] <file>..."))
		os.Exit(1)
	}

	printer := core.NewPrinter(*jsonOut, *verbose)
	exit := 0
	for i, path := range flags.Args() {
		if i > 0 && !*jsonOut {
			fmt.Println(divider)
		}
		format, err := core.DetectFile(path)
		if err != nil {
			core.PrintError(err.Error())
			exit = 1
			continue
		}
		if core.MediaTypeFor(format) == "audio" {
			if err := inspectAudio(path, *jsonOut); err != nil {
				core.PrintError(err.Error())
				exit = 1
			}
			continue
		}
		report, err := scrub.InspectFile(path)
		if err != nil {
			core.PrintError(err.Error())
			exit = 1
			continue
		}
		if !*jsonOut {
			fmt.Printf("%s %s\n", riskBadge(report.Analysis.Risk), styleTitle.Render(path))
		}
		printer.PrintReport(report)
	}
	os.Exit(exit)
}

func inspectAudio(path string, jsonOut bool) error {
	rep, err := audio.Inspect(path)
	if err != nil {
		return err
	}
	if jsonOut {
		out := struct {
			File      string        `json:"file"`
			Format    string        `json:"format"`
			Sensitive bool          `json:"sensitive"`
			Fields    []audio.Field `json:"fields,omitempty"`
		}{path, string(rep.Format), rep.Sensitive, rep.Fields}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("File  : %s\n", path)
	fmt.Printf("Format: %s\n", core.InfoFor(rep.Format).Name)
	if rep.Sensitive {
		fmt.Printf("Tags  : %s\n", styleWarn.Render("identifying tags present"))
	} else {
		fmt.Printf("Tags  : %s\n", styleDim.Render("nothing identifying"))
	}
	for _, f := range rep.Fields {
		fmt.Printf("  %-12s %s\n", f.Key+":", f.Value)
	}
	return nil
}

// ─── scrub ───────────────────────────────────────────────────────────────────

func handleScrub(args []string) {
	flags := pflag.NewFlagSet("scrub", pflag.ExitOnError)
	out := flags.StringP("output", "o", "", "output path (single file only)")
	inPlace := flags.Bool("in-place", false, "overwrite the originals")
	suffix := flags.String("suffix", "", "suffix for scrubbed copies")
	workers := flags.IntP("workers", "w", 0, "parallel workers")
	jsonOut := flags.Bool("json", false, "machine-readable JSON output")
	flags.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	if *suffix == "" {
		*suffix = cfg.Scrub.Suffix
	}
	if *workers < 1 {
		*workers = cfg.Scrub.Workers
	}
	if cfg.Scrub.InPlace {
		*inPlace = true
	}

	paths := flags.Args()
	if len(paths) == 0 {
		core.PrintError("no files given")
		fmt.Println(styleDim.Render("usage: photoscrub scrub [options] <file>..."))
		os.Exit(1)
	}
	if *out != "" && len(paths) > 1 {
		core.PrintError("-o only works with a single input file")
		os.Exit(1)
	}

	dstFor := func(p string) string {
		if *out != "" {
			return *out
		}
		if *inPlace {
			return p
		}
		return core.ResolveOutPath(p, "", *suffix)
	}

	printer := core.NewPrinter(*jsonOut, false)

	if len(paths) == 1 {
		res, err := scrubOne(paths[0], dstFor(paths[0]))
		if err != nil {
			core.PrintError(err.Error())
			os.Exit(1)
		}
		printer.PrintStripResult(paths[0], res)
		if !res.Clean {
			os.Exit(1)
		}
		return
	}

	scrubMany(paths, dstFor, *workers, *jsonOut, printer)
}

// scrubOne routes a single file to the right scrubber.
func scrubOne(path, dst string) (*core.StripResult, error) {
	format, err := core.DetectFile(path)
	if err != nil {
		return nil, err
	}
	if core.MediaTypeFor(format) == "audio" {
		return nil, fmt.Errorf("%s is an audio file; use: photoscrub audio strip", path)
	}
	return scrub.File(path, dst)
}

func scrubMany(paths []string, dstFor func(string) string, workers int, jsonOut bool, printer *core.Printer) {
	exit := 0
	items := make([][]byte, 0, len(paths))
	readable := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			core.PrintError(err.Error())
			exit = 1
			continue
		}
		items = append(items, data)
		readable = append(readable, p)
	}

	var batch *core.BatchResult
	run := func() error {
		batch = scrub.BatchContext(context.Background(), items, workers)
		return nil
	}
	if jsonOut {
		run()
	} else {
		spinWhile(fmt.Sprintf("scrubbing %d files", len(items)), run)
	}

	for i := range batch.Items {
		res := &batch.Items[i]
		path := readable[i]
		if res.Clean {
			if err := writeScrubbed(path, dstFor(path), res.Data); err != nil {
				core.PrintError(err.Error())
				exit = 1
			}
		} else {
			exit = 1
		}
		printer.PrintStripResult(path, res)
	}
	printer.PrintBatchSummary(batch)
	if !jsonOut {
		if len(batch.Failed) == 0 {
			fmt.Println(okSymbol(), styleOK.Render("all files scrubbed"))
		} else {
			fmt.Println(warnSymbol(), styleWarn.Render(
				fmt.Sprintf("%d file(s) kept their original bytes", len(batch.Failed))))
		}
	}
	os.Exit(exit)
}

func writeScrubbed(src, dst string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(src); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(dst, data, mode)
}

// ─── audio ───────────────────────────────────────────────────────────────────

func handleAudio(args []string) {
	if len(args) < 1 {
		core.PrintError("audio needs a subcommand")
		fmt.Println(styleDim.Render("usage: photoscrub audio <inspect|strip> [options] <file>..."))
		os.Exit(1)
	}
	switch args[0] {
	case "inspect":
		handleAudioInspect(args[1:])
	case "strip":
		handleAudioStrip(args[1:])
	default:
		core.PrintError("unknown audio subcommand: " + args[0])
		os.Exit(1)
	}
}

func handleAudioInspect(args []string) {
	flags := pflag.NewFlagSet("audio inspect", pflag.ExitOnError)
	jsonOut := flags.Bool("json", false, "machine-readable JSON output")
	flags.Parse(args)

	if flags.NArg() == 0 {
		core.PrintError("no files given")
		os.Exit(1)
	}
	exit := 0
	for i, path := range flags.Args() {
		if i > 0 && !*jsonOut {
			fmt.Println(divider)
		}
		if err := inspectAudio(path, *jsonOut); err != nil {
			core.PrintError(err.Error())
			exit = 1
		}
	}
	os.Exit(exit)
}

func handleAudioStrip(args []string) {
	flags := pflag.NewFlagSet("audio strip", pflag.ExitOnError)
	inPlace := flags.Bool("in-place", false, "overwrite the originals")
	suffix := flags.String("suffix", "_clean", "suffix for scrubbed copies")
	flags.Parse(args)

	if flags.NArg() == 0 {
		core.PrintError("no files given")
		os.Exit(1)
	}
	exit := 0
	for _, path := range flags.Args() {
		dst := path
		if !*inPlace {
			dst = core.ResolveOutPath(path, "", *suffix)
		}
		if err := audio.StripFile(path, dst); err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			exit = 1
			continue
		}
		fmt.Printf("✓ %s: tags removed\n", dst)
	}
	os.Exit(exit)
}

// ─── watch ───────────────────────────────────────────────────────────────────

func handleWatch(args []string) {
	flags := pflag.NewFlagSet("watch", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "config file to use")
	flags.Parse(args)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	if flags.NArg() > 0 {
		cfg.Watch.Paths = flags.Args()
	}

	d, err := daemon.New(cfg)
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	if err := d.Start(); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	fmt.Println(okSymbol(), styleTitle.Render("watching"), strings.Join(cfg.Watch.Paths, ", "))
	fmt.Println(styleDim.Render("press Ctrl+C to stop"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println()

	status := d.Status()
	if err := d.Stop(); err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}
	fmt.Printf("%s scrubbed %d file(s), %d failed\n", okSymbol(), status.Processed, status.Failed)
}

// ─── formats ─────────────────────────────────────────────────────────────────

func handleFormats(args []string) {
	flags := pflag.NewFlagSet("formats", pflag.ExitOnError)
	jsonOut := flags.Bool("json", false, "machine-readable JSON output")
	flags.Parse(args)

	infos := core.AllFormats()
	if *jsonOut {
		b, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Println(string(b))
		return
	}
	for _, info := range infos {
		parse, rewrite := "-", "-"
		if info.CanParse {
			parse = "✓"
		}
		if info.CanRewrite {
			rewrite = "✓"
		}
		fmt.Printf("%-10s %-24s parse:%s rewrite:%s  %s\n",
			info.Name, strings.Join(info.Extensions, " "), parse, rewrite,
			styleDim.Render(info.Notes))
	}
}

// ─── usage ───────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Println(styleTitle.Render("photoscrub") + " - remove sensitive metadata from images")
	fmt.Println()
	fmt.Println(styleTitle.Render("USAGE"))
	fmt.Println("  photoscrub <command> [options] [files]")
	fmt.Println()
	fmt.Println(styleTitle.Render("COMMANDS"))
	fmt.Println("  inspect <file>...        show metadata and privacy risk")
	fmt.Println("  scrub <file>...          remove sensitive metadata")
	fmt.Println("  audio <inspect|strip>    same for audio files")
	fmt.Println("  watch [dir]...           scrub new files as they appear")
	fmt.Println("  formats                  list supported formats")
	fmt.Println("  version                  show version")
	fmt.Println()
	fmt.Println(styleTitle.Render("SCRUB OPTIONS"))
	fmt.Println("  -o, --output <path>      write result to path (single file)")
	fmt.Println("      --in-place           overwrite the originals")
	fmt.Println("      --suffix <s>         suffix for scrubbed copies (default _clean)")
	fmt.Println("  -w, --workers <n>        parallel workers for batches")
	fmt.Println("      --json               machine-readable output")
}
