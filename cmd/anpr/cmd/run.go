package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/anpr/internal/frame"
	"github.com/MeKo-Tech/anpr/internal/model"
	"github.com/MeKo-Tech/anpr/internal/pipeline"
	"github.com/MeKo-Tech/anpr/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run [image files or directory]",
	Short: "Run plate recognition over images",
	Long: `Run the full recognition pipeline over one or more image files, or over
every image in a directory (sorted by name).

Examples:
  anpr run photo.jpg
  anpr run frame1.png frame2.png --format json
  anpr run ./captures --metrics-addr :9090`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid format: %s (must be text or json)", format)
		}

		src, err := newSource(args)
		if err != nil {
			return err
		}

		assets, err := loadAssets(cfg.DetectionModelPath(), cfg.CornerModelPath(), cfg.OCRModelPath())
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg.ToPipeline(), assets, runner.NewONNXEngine)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.MetricsAddr != "" {
			startMetricsServer(ctx, cfg.MetricsAddr)
		}

		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		var frames, recognized int
		err = p.Run(ctx, src, func(res *pipeline.Result) {
			frames++
			if res.Recognized() {
				recognized++
			}
			if format == "json" {
				_ = enc.Encode(res)
				return
			}
			printResult(out, res)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		slog.Info("run complete", "frames", frames, "recognized", recognized)
		return nil
	},
}

func init() {
	runCmd.Flags().String("format", "text", "output format (text, json)")
	runCmd.Flags().String("metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9090)")
	_ = viper.BindPFlag("metrics_addr", runCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(runCmd)
}

// newSource builds a frame source from the positional arguments: a single
// directory argument enumerates its images, otherwise each argument is an
// image file.
func newSource(args []string) (frame.Source, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return frame.NewDirSource(args[0])
		}
	}
	return frame.NewFileSource(args...)
}

func loadAssets(detPath, cornerPath, ocrPath string) (pipeline.Assets, error) {
	det, err := model.LoadFile(detPath)
	if err != nil {
		return pipeline.Assets{}, fmt.Errorf("detection model: %w", err)
	}
	corner, err := model.LoadFile(cornerPath)
	if err != nil {
		return pipeline.Assets{}, fmt.Errorf("corner model: %w", err)
	}
	ocr, err := model.LoadFile(ocrPath)
	if err != nil {
		return pipeline.Assets{}, fmt.Errorf("ocr model: %w", err)
	}
	return pipeline.Assets{Detection: det, Corner: corner, OCR: ocr}, nil
}

func printResult(out io.Writer, res *pipeline.Result) {
	switch res.Outcome {
	case pipeline.OutcomeRecognized:
		fmt.Fprintf(out, "%s\t%.3f\n", res.Text, res.Confidence)
	case pipeline.OutcomeNotFound:
		fmt.Fprintf(out, "-\t%s: %s\n", res.Stage, res.Reason)
	case pipeline.OutcomeError:
		fmt.Fprintf(out, "!\t%s: %s\n", res.Stage, res.Reason)
	}
}

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
