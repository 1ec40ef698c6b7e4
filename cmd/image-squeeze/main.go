package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"image-squeeze-go/internal/compressor"
	"image-squeeze-go/internal/config"
	"image-squeeze-go/internal/files"
	"image-squeeze-go/internal/logger"
	"image-squeeze-go/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	quiet     bool
	version   string
	buildTime string
	port      int
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "image-squeeze",
	Short: "Compress images through a browser drop zone",
	Long: `ImageSqueeze serves a single-page drop zone where you can drag in an
image, have it compressed down to a 1 MB / 1920px target, and download
the result as "compressed-<name>".

Features:
- Drag-and-drop or click-to-browse upload, capped at 10MB
- JPEG re-encoding with automatic quality stepping
- EXIF capture-time display for photos
- Live progress over a websocket
- One-shot CLI compression without the web UI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// serveCmd starts the web interface server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start web interface server",
	Long: `Starts the web server hosting the drop-zone interface.

Access the interface at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// compressCmd compresses a single file from the command line.
var compressCmd = &cobra.Command{
	Use:   "compress <file>",
	Short: "Compress a single image file without the web UI",
	Long: `Compresses the given image file using the same pipeline as the web
interface and writes the result next to it as "compressed-<name>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(args[0])
	},
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version == "" {
			version = "dev"
		}
		fmt.Printf("image-squeeze %s", version)
		if buildTime != "" {
			fmt.Printf(" (built %s)", buildTime)
		}
		fmt.Println()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "port to run web server on (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-squeeze")
		viper.AddConfigPath("/etc/image-squeeze")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}

	log := setupLogger(cfg)
	comp := compressor.NewDefaultCompressor()
	server := web.NewServer(cfg, log, comp)

	if port == 0 {
		port = cfg.Server.Port
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("ImageSqueeze started on http://localhost:%d\n", port)
	fmt.Printf("Press Ctrl+C to stop the server\n\n")

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("Server stopped gracefully")
	return nil
}

// runCompress compresses a single file and writes the artifact next to it.
func runCompress(path string) error {
	if !fileExists(path) {
		return fmt.Errorf("file does not exist: %s", path)
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if int64(len(data)) > cfg.Limits.MaxUploadBytes {
		return fmt.Errorf("%s", files.NoticeFileTooLarge)
	}

	comp := compressor.NewDefaultCompressor()
	res, err := comp.Compress(context.Background(), data, compressor.CompressionParams{
		TargetBytes:    cfg.Compression.TargetBytes,
		MaxDimension:   cfg.Compression.MaxDimension,
		InitialQuality: cfg.Compression.InitialQuality,
		MinQuality:     cfg.Compression.MinQuality,
	})
	if err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	outPath := filepath.Join(filepath.Dir(path), files.ArtifactName(filepath.Base(path)))
	if err := os.WriteFile(outPath, res.Data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if !quiet {
		fmt.Printf("Compressed %s: %s -> %s (%.1f%% saved, quality %d)\n",
			path, files.SizeMB(res.OriginalSize), files.SizeMB(res.CompressedSize),
			res.PercentageSaved, res.Quality)
		fmt.Printf("Artifact written to %s\n", outPath)
	}

	return nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.DefaultConfig()
	loggerCfg.Level = cfg.Logging.Level
	loggerCfg.FilePath = cfg.Logging.FilePath
	loggerCfg.MaxSize = cfg.Logging.MaxSize
	loggerCfg.MaxBackups = cfg.Logging.MaxBackups
	loggerCfg.MaxAge = cfg.Logging.MaxAge
	loggerCfg.Compress = cfg.Logging.Compress
	loggerCfg.Console = !quiet

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
