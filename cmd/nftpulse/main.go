package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/irfndi/nftpulse/internal/config"
	"github.com/irfndi/nftpulse/internal/logging"
	"github.com/irfndi/nftpulse/internal/models"
	"github.com/irfndi/nftpulse/internal/outliers"
	"github.com/irfndi/nftpulse/internal/render"
	"github.com/irfndi/nftpulse/internal/services"
	"github.com/irfndi/nftpulse/internal/telemetry"
	"github.com/irfndi/nftpulse/internal/utils"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

type reportOptions struct {
	input      string
	format     string
	configPath string
	envFile    string
	lang       string
	outliers   string
	color      bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nftpulse",
		Short: "NFT market metrics and risk scoring",
		Long: `nftpulse derives trend, momentum, outlier and correlation metrics from NFT
collection, marketplace and market payloads, classifies wash-trade severity,
activity and trader patterns, and aggregates them into a portfolio report.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReportCmd())
	return root
}

func newReportCmd() *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a report from a metrics payload",
		Long: `Build a report from a JSON payload: an array of records or an object with
the records under "data". Trend arrays ("*_trend") are aligned to block_dates.

Example usage:
  nftpulse report --input collections.json
  nftpulse report --input - --format json < collections.json
  nftpulse report --input collections.json --config configs/config.yaml --color`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "payload file, or - for stdin")
	flags.StringVarP(&opts.format, "format", "f", "table", "output format: table or json")
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./configs/config.yaml or ./config.yaml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.StringVar(&opts.lang, "lang", "en", "language for number formatting")
	flags.StringVar(&opts.outliers, "outliers", "iqr", "outlier method: iqr or zscore")
	flags.BoolVar(&opts.color, "color", false, "color severity labels")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runReport(ctx context.Context, opts reportOptions, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// .env is optional
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	tag, err := language.Parse(opts.lang)
	if err != nil {
		return utils.NewValidationErrorf("invalid --lang %q: %v", opts.lang, err)
	}
	if opts.format != "table" && opts.format != "json" {
		return utils.NewValidationErrorf("invalid --format %q: want table or json", opts.format)
	}
	detector, err := outlierDetector(opts.outliers, cfg.Engine)
	if err != nil {
		return err
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger.LogStartup(cfg.Telemetry.ServiceName, version)
	defer logger.LogShutdown(cfg.Telemetry.ServiceName, "report complete")

	provider, err := telemetry.InitTelemetry(ctx, telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		Output:         os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
	}()

	records, err := readRecords(opts.input, stdin)
	if err != nil {
		return err
	}
	logger.WithComponent("cli").WithField("records", len(records)).Debug("Payload decoded")

	svc := services.NewReportService(cfg.Engine, logger.Logger(), telemetry.NewBusinessTracer(provider.ReportTracer()))
	svc.SetDetector(detector)

	report, err := svc.BuildReport(ctx, records)
	if err != nil {
		logger.WithOperation("build_report").WithError(err).Error("Report failed")
		return err
	}
	logger.LogBusinessEvent("report_built", map[string]interface{}{
		"report_id": report.ID,
		"entities":  len(report.Entities),
		"dominant":  report.Summary.DominantLabel,
	})

	if opts.format == "json" {
		return render.JSON(out, report)
	}
	return render.Table(out, report, render.Options{Language: tag, Color: opts.color})
}

func readRecords(input string, stdin io.Reader) ([]models.EntityRecord, error) {
	if input == "-" {
		records, err := models.DecodeRecords(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stdin: %w", err)
		}
		return records, nil
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}
	defer f.Close()

	records, err := models.DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", input, err)
	}
	return records, nil
}

func outlierDetector(method string, engine config.EngineConfig) (outliers.Detector, error) {
	switch method {
	case "", "iqr":
		return outliers.IQR{Multiplier: engine.IQRMultiplier}, nil
	case "zscore":
		return outliers.NewZScore(), nil
	default:
		return nil, utils.NewValidationErrorf("invalid --outliers %q: want iqr or zscore", method)
	}
}
