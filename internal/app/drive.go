package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"notebox/internal/config"
	"notebox/internal/drive"
	"notebox/internal/encryption"
	"notebox/internal/nb"
)

const shutdownTimeout = 5 * time.Second

// DriveServer runs the upload relay described by the [drive] config section.
type DriveServer struct {
	srv     *http.Server
	ln      net.Listener
	logger  nb.Logger
	logFile *os.File
}

// NewDriveServer binds the relay's listen address and builds its backend.
// When public_url is empty, links point at the bound address.
// The caller must call Serve or Close.
func NewDriveServer(ctx context.Context, cfg *config.Config) (*DriveServer, error) {
	op := NewOperation("DriveServe", time.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	listen := cfg.Drive.Listen
	if listen == "" {
		listen = "127.0.0.1:8787"
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("listening on %s: %w", listen, err)
	}

	driveCfg := cfg.Drive
	if driveCfg.PublicURL == "" {
		driveCfg.PublicURL = "http://" + ln.Addr().String()
	}

	backend, err := drive.NewBackendFromConfig(ctx, driveCfg, logger)
	if err != nil {
		ln.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating drive backend: %w", err)
	}

	logger.Info("drive relay configured", "type", driveCfg.Type, "addr", ln.Addr().String(), "public_url", driveCfg.PublicURL)
	return &DriveServer{
		srv:     &http.Server{Handler: drive.NewServer(backend, logger), ReadHeaderTimeout: 10 * time.Second},
		ln:      ln,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Addr returns the bound address.
func (d *DriveServer) Addr() string {
	return d.ln.Addr().String()
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully.
func (d *DriveServer) Serve(ctx context.Context) error {
	defer d.logFile.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- d.srv.Serve(d.ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving drive relay: %w", err)
	case <-ctx.Done():
	}

	d.logger.Info("drive relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down drive relay: %w", err)
	}
	return nil
}

// Close releases the listener without serving.
func (d *DriveServer) Close() error {
	d.logFile.Close()
	return d.ln.Close()
}

// GenerateDriveKey creates the age identity used to encrypt hosted blobs
// and returns its public key.
func GenerateDriveKey(cfg *config.Config) (string, error) {
	if cfg.Drive.Encryption.IdentityPath == "" {
		return "", fmt.Errorf("drive.encryption.identity_path is not set")
	}
	enc := encryption.NewAgeEncryptor(cfg.Drive.Encryption)
	if err := enc.Setup(); err != nil {
		return "", err
	}
	return enc.Recipient()
}
