package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cshum/vipsgen/vips"

	"github.com/zeecrown/imager/config"
	handler "github.com/zeecrown/imager/handler/v1/images"
	"github.com/zeecrown/imager/normalizer"
	"github.com/zeecrown/imager/normalizer/libvips"
	"github.com/zeecrown/imager/router"
	"github.com/zeecrown/imager/web/downloader"
	"github.com/zeecrown/imager/web/uploader"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var enc normalizer.Encoder = normalizer.WebP{}
	if cfg.Encoder == config.EncoderLibvips {
		vips.Startup(nil)
		defer vips.Shutdown()
		enc = libvips.WebP{}
	}

	n, err := normalizer.New(enc,
		normalizer.WithPolicy(cfg.Policy()),
		normalizer.WithLogger(logger))
	if err != nil {
		logger.Error("error creating normalizer", "error", err)
		os.Exit(1)
	}

	var uploadSvc uploader.Service
	if cfg.Bucket != "" {
		sess, err := session.NewSession()
		if err != nil {
			logger.Error("error creating aws session", "error", err)
			os.Exit(1)
		}
		uploadSvc = uploader.New(s3manager.NewUploader(sess), cfg.Bucket)
	} else {
		logger.Warn("IMAGER_BUCKET is not set, upload endpoints are disabled")
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: router.New(n,
			uploadSvc,
			downloader.New(&http.Client{Timeout: cfg.Timeout}, cfg.MaxUploadBytes),
			handler.Options{
				Folders:        cfg.Folders,
				Timeout:        cfg.Timeout,
				MaxUploadBytes: cfg.MaxUploadBytes,
				Logger:         logger,
			}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down server", "error", err)
		}
	}()

	logger.Info("imager listening", "addr", cfg.Addr, "bucket", cfg.Bucket,
		"folders", cfg.Folders, "encoder", cfg.Encoder)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("error running server", "error", err)
		os.Exit(1)
	}
	<-idle
}
