package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	aesd "github.com/ehrlich-b/go-aesd"
	"github.com/ehrlich-b/go-aesd/internal/logging"
	"github.com/ehrlich-b/go-aesd/internal/server"
	"github.com/ehrlich-b/go-aesd/internal/store"
)

// daemonEnv marks the re-exec'd child so it skips the detach step.
const daemonEnv = "AESDSOCKET_DAEMONIZED"

func main() {
	var (
		daemonize = flag.Bool("d", false, "Detach into the background")
		port      = flag.Int("port", aesd.DefaultPort, "TCP port to listen on")
		dataFile  = flag.String("data", "", "Mirror the log to this file (empty: in-process only)")
		interval  = flag.Duration("interval", aesd.DefaultTimestampInterval, "Timestamp record interval (file-mirrored mode)")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	// Set up logging
	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *daemonize && os.Getenv(daemonEnv) == "" {
		if err := detach(); err != nil {
			logger.Error("failed to daemonize", "error", err)
			os.Exit(1)
		}
		// Parent: the child carries on.
		os.Exit(0)
	}

	// Pick the store: the plain in-process Device, or the file-mirrored
	// variant when a data path was given.
	var (
		st aesd.Store
		fb *store.FileBacked
	)
	if *dataFile != "" {
		var err error
		fb, err = store.New(*dataFile, logger)
		if err != nil {
			logger.Error("failed to create file-mirrored store", "path", *dataFile, "error", err)
			os.Exit(1)
		}
		st = fb
		logger.Info("mirroring log to file", "path", *dataFile)
	} else {
		st = aesd.NewDevice()
	}

	srv, err := server.New(server.Config{
		Port:   *port,
		Store:  st,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "port", *port, "error", err)
		os.Exit(1)
	}

	// The timestamper only makes sense against a real file a human might
	// tail; the pure in-process log has no external readers.
	var ts *server.Timestamper
	if fb != nil {
		ts = server.NewTimestamper(fb, *interval, logger)
		ts.Start()
	}

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", "signal", sig.String())

	// Stop accepting, join workers, then tear down the background task and
	// unlink the data file. Bound the whole teardown so a wedged worker
	// cannot hang the exit.
	done := make(chan struct{})
	go func() {
		srv.Shutdown()
		if ts != nil {
			ts.Stop()
		}
		if fb != nil {
			if err := fb.Remove(); err != nil {
				logger.Warn("failed to unlink data file", "path", fb.Path(), "error", err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info("clean shutdown")
	case <-time.After(5 * time.Second):
		logger.Warn("shutdown timeout, forcing exit")
	}

	os.Exit(0)
}

// detach re-executes the process in a new session with the working
// directory set to / and stdio redirected to /dev/null, then returns in
// the parent. This is the fork/setsid/chdir/redirect daemon dance; Go
// cannot fork() directly, so the child is a fresh exec of the same binary
// marked via environment.
func detach() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devNull.Close()

	proc, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Dir:   "/",
		Env:   append(os.Environ(), daemonEnv+"=1"),
		Files: []*os.File{devNull, devNull, devNull},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return err
	}
	return proc.Release()
}
