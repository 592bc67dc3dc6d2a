// Package main is the entry point for the zplanebank CLI
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/james-see/zplanebank/pkg/api"
	"github.com/james-see/zplanebank/pkg/audition"
	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/batch"
	"github.com/james-see/zplanebank/pkg/config"
	"github.com/james-see/zplanebank/pkg/ingest"
	"github.com/james-see/zplanebank/pkg/sysex"
	"github.com/james-see/zplanebank/pkg/tui"
	"github.com/james-see/zplanebank/pkg/zplane"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool
	outputPath string
	bankName   string
	destRate   int
	serverPort int
	workers    int
	batchOp    string
	duration   time.Duration

	cfg    config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zplanebank",
	Short: "Encode, decode and resample Z-plane filter banks",
	Long: `zplanebank builds SVZa Z-plane filter bank containers from preset lists,
recovers what it can from existing containers, and converts pole shapes
between sample rates.

Examples:
  zplanebank encode presets.json -o bank.svz --name "My Bank"
  zplanebank decode bank.svz -o extracted/
  zplanebank convert-sr shapes_48k.json --rate 44100
  zplanebank render shapes_48k.json --rate 44100 -o wav/
  zplanebank ingest AUDTY/*.syx -o presets.json
  zplanebank batch --op decode banks/*.svz -o extracted/
  zplanebank tui
  zplanebank serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode <presets.json>",
	Short: "Encode a preset list into a bank container",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncode,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <bank>",
	Short: "Recover strings, coefficients and presets from a container",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

var convertCmd = &cobra.Command{
	Use:   "convert-sr <shapes.json>",
	Short: "Convert pole shapes to another sample rate",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var renderCmd = &cobra.Command{
	Use:   "render <shapes.json>",
	Short: "Render shape impulse responses as WAV, before and after conversion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dump.syx>...",
	Short: "Read E-MU SysEx preset dumps into a preset list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Run encode, decode or convert-sr over many files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "zplanebank.toml", "Config file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	encodeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output container path")
	encodeCmd.Flags().StringVarP(&bankName, "name", "n", "", "Bank name")

	decodeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory (default extracted)")

	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output shapes path")
	convertCmd.Flags().IntVarP(&destRate, "rate", "r", 0, "Target sample rate (default from config)")

	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory (default wav)")
	renderCmd.Flags().IntVarP(&destRate, "rate", "r", 0, "Target sample rate (default from config)")
	renderCmd.Flags().DurationVar(&duration, "duration", audition.DefaultDuration, "Length of each response")

	ingestCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output preset list (default presets.json)")
	ingestCmd.Flags().StringVarP(&bankName, "name", "n", "", "Bank name stored in the preset list")

	batchCmd.Flags().StringVar(&batchOp, "op", "decode", "Operation: encode, decode or convert")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory (default current)")
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent files (default from config)")
	batchCmd.Flags().IntVarP(&destRate, "rate", "r", 0, "Target sample rate for convert")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getOutputPath(input, suffix string) string {
	if outputPath != "" {
		return outputPath
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}

// outputPath is shared by every command, so per-command defaults live here
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func targetRate() int {
	if destRate > 0 {
		return destRate
	}
	return cfg.Shapes.DestRate
}

func runEncode(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".svz")
	name := bankName
	if name == "" {
		name = cfg.Bank.Name
	}

	result, err := bank.EncodeFile(input, output, name, bank.WithObserver(bank.NewLogObserver(logger)))
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		logger.Warn(w.Error())
	}

	fmt.Printf("Encoded %s -> %s (%d bytes, payload %d bytes)\n", input, output, len(result.Data), result.RawSize)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	input := args[0]
	opts := append(cfg.DecodeOptions(), bank.WithObserver(bank.NewLogObserver(logger)))

	artifacts, written, err := bank.DecodeFile(input, orDefault(outputPath, "extracted"), opts...)
	if err != nil {
		return err
	}
	for _, w := range artifacts.Warnings {
		logger.Warn(w)
	}

	fmt.Printf("Decoded %s: %d bytes from marker at %d\n", input, len(artifacts.Decompressed), artifacts.MarkerOffset)
	fmt.Printf("  strings: %d  coefficient runs: %d (%d Z-plane-like)  signatures: %d\n",
		len(artifacts.Strings), len(artifacts.Coefficients), len(artifacts.ZPlaneCandidates()), len(artifacts.Signatures))
	for _, sig := range artifacts.Signatures {
		fmt.Printf("  %-10s @ 0x%X\n", sig.Marker, sig.Offset)
	}
	if len(artifacts.Presets) > 0 {
		fmt.Printf("  presets: %d\n", len(artifacts.Presets))
	}
	for _, p := range written {
		fmt.Printf("  wrote %s\n", p)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	rate := targetRate()
	output := getOutputPath(input, fmt.Sprintf("_%d.json", rate))

	report, err := zplane.ConvertFile(input, output, rate)
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s (%d -> %d Hz, ratio %.6f)\n", input, output, report.SourceRate, report.DestRate, report.Ratio)
	for _, s := range report.Shapes {
		fmt.Printf("  %-16s %7.2f dB -> %7.2f dB @ %.0f Hz\n", s.Name, s.BeforeDB, s.AfterDB, report.ProbeHz)
		for i, p := range s.Poles {
			clamped := ""
			if p.Clamped {
				clamped = " (clamped)"
			}
			fmt.Printf("    pole %d: r %.6f -> %.6f (%+.2f%%)  theta %.6f -> %.6f%s\n",
				i, p.Before.R, p.After.R, p.RadiusChangePct, p.Before.Theta, p.After.Theta, clamped)
		}
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	input := args[0]
	dir := orDefault(outputPath, "wav")

	src, err := zplane.LoadShapes(input)
	if err != nil {
		return err
	}
	dst, err := zplane.Convert(src, targetRate())
	if err != nil {
		return err
	}

	var written []string
	for _, set := range []zplane.ShapeSet{src, dst} {
		paths, err := audition.RenderSet(dir, strconv.Itoa(set.SampleRateRef), set, duration)
		written = append(written, paths...)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Rendered %d shape(s) at %d and %d Hz\n", len(src.Shapes), src.SampleRateRef, dst.SampleRateRef)
	for _, p := range written {
		fmt.Printf("  wrote %s\n", p)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	var presets []ingest.Preset
	for _, input := range args {
		ps, err := sysex.LoadPresets(input)
		if err != nil {
			logger.Warn("skipping dump", "file", input, "error", err)
			continue
		}
		presets = append(presets, ps...)
	}
	if len(presets) == 0 {
		return fmt.Errorf("no E-MU presets found in %d file(s)", len(args))
	}

	data, err := ingest.MarshalPresets(bankName, presets)
	if err != nil {
		return err
	}
	output := orDefault(outputPath, "presets.json")
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}

	fmt.Printf("Ingested %d preset(s) -> %s\n", len(presets), output)
	if len(presets) > bank.BankSize {
		fmt.Printf("  note: a bank holds %d presets; the rest are dropped on encode\n", bank.BankSize)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	op, err := batch.ParseOp(batchOp)
	if err != nil {
		return err
	}
	n := workers
	if n <= 0 {
		n = cfg.Batch.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &batch.Runner{
		Workers:       n,
		OutputDir:     outputPath,
		BankName:      cfg.Bank.Name,
		DestRate:      targetRate(),
		DecodeOptions: cfg.DecodeOptions(),
		Logger:        logger,
	}
	results := r.Run(ctx, op, args)

	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("✗ %s: %v\n", res.Input, res.Err)
			continue
		}
		fmt.Printf("✓ %s (%d output(s), %d warning(s), %s)\n", res.Input, len(res.Outputs), len(res.Warnings), res.Elapsed)
	}
	if failed := batch.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	return api.StartServer(cfg, logger)
}
