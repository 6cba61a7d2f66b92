package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qrcraft/qrcraft/api"
	"github.com/qrcraft/qrcraft/config"
	"github.com/qrcraft/qrcraft/render"
	"github.com/qrcraft/qrcraft/studio"
)

var version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "qrcraft",
		Short:        "QR code generator with logo overlay",
		SilenceUsage: true,
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the QR code generator page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- generate command ----------------------------------------------------
	var gen generateFlags
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a QR code PNG into the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runGenerate(cmd.Context(), gen)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	generateCmd.Flags().StringVarP(&gen.configPath, "config", "c", "config.yaml", "Path to config file")
	generateCmd.Flags().StringVarP(&gen.text, "text", "t", "", "URL or text to encode")
	generateCmd.Flags().IntVarP(&gen.size, "size", "s", 0, "Image size in pixels (defaults to default_size)")
	generateCmd.Flags().StringVarP(&gen.logo, "logo", "l", "", "Path to a logo image")
	generateCmd.Flags().StringVarP(&gen.out, "out", "o", "", "Output directory (defaults to output_dir)")
	root.AddCommand(generateCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qrcraft %s\n", version)
		},
	})

	return root
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// newStudio wires the encoder, pipeline and studio from cfg.
func newStudio(cfg *config.Config, log *slog.Logger) *studio.Studio {
	enc := render.NewSkipEncoder(cfg.DarkColor(), cfg.LightColor())
	p := render.NewPipeline(enc, render.Options{
		AllowedSizes: cfg.Sizes,
		Composite: render.CompositeOptions{
			Fraction: cfg.Logo.Fraction,
			Padding:  cfg.Logo.Padding,
			Shadow:   cfg.Logo.Shadow,
		},
		VerifyScan: cfg.VerifyScan,
		Clock:      time.Now,
	}, log)
	return studio.New(p, studio.Options{
		NoticeTTL:     cfg.NoticeTTL.Duration,
		MaxLogoBytes:  cfg.Logo.MaxBytes,
		MaxLogoPixels: cfg.Logo.MaxPixels,
	}, log)
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting qrcraft", "version", version, "addr", cfg.Addr(), "sizes", cfg.Sizes)

	// 3. Build the generation session
	st := newStudio(cfg, log)

	// 4. Start HTTP server
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(&api.Server{
			Studio:         st,
			Log:            log,
			Version:        version,
			DefaultSize:    cfg.DefaultSize,
			MaxUploadBytes: cfg.Logo.MaxBytes,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "url", "http://"+cfg.Addr()+"/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

type generateFlags struct {
	configPath string
	text       string
	size       int
	logo       string
	out        string
}

// runGenerate renders one QR code to disk and returns the written path.
func runGenerate(ctx context.Context, f generateFlags) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if f.out != "" {
		cfg.OutputDir = f.out
	}
	if f.size == 0 {
		f.size = cfg.DefaultSize
	}
	if err := cfg.EnsureOutputDir(); err != nil {
		return "", err
	}

	log := newLogger(cfg.LogLevel)
	st := newStudio(cfg, log)

	if f.logo != "" {
		file, err := os.Open(f.logo)
		if err != nil {
			return "", fmt.Errorf("open logo: %w", err)
		}
		_, err = st.SelectLogo(filepath.Base(f.logo), file)
		file.Close()
		if err != nil {
			return "", fmt.Errorf("select logo: %w", err)
		}
	}

	res, err := st.Submit(ctx, f.text, f.size)
	if err != nil {
		return "", err
	}

	path := filepath.Join(cfg.OutputDir, res.Filename)
	if err := os.WriteFile(path, res.PNG, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	log.Debug("qr code written", "path", path, "bytes", len(res.PNG))
	return path, nil
}
