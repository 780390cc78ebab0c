// Package cmd is the cobra CLI entry point.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/udlna/udlna/conf"
	"github.com/udlna/udlna/consts"
	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model/id"
	"github.com/udlna/udlna/scanner"
	"github.com/udlna/udlna/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     consts.AppName + " [flags] dir [dir...]",
	Short:   "Minimal DLNA/UPnP media server",
	Long:    "Minimal DLNA/UPnP media server - `" + consts.AppName + " /path/to/media` and it works.",
	Version: consts.Version,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runServer(args)
	},
}

// Execute runs the root command. A missing media directory argument prints
// usage and exits 1 via cobra's Args validation.
func Execute() {
	rootCmd.SetVersionTemplate(`{{println .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().IntP("port", "p", consts.DefaultPort, "HTTP port to listen on")
	rootCmd.Flags().StringP("name", "n", "", "friendly server name shown on DLNA client device lists")
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to TOML config file")
	rootCmd.Flags().Bool("localhost", false, "bind to localhost only instead of all interfaces")

	// Flags only override file values when set; viper handles the
	// flag > file > default precedence chain.
	_ = viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("name", rootCmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("localhost", rootCmd.Flags().Lookup("localhost"))
}

func runServer(paths []string) {
	conf.SetDefaults()
	conf.LoadFile(cfgFile)
	cfg := conf.Load(paths)

	for _, p := range cfg.Paths {
		st, err := os.Stat(p)
		if err != nil {
			fatal("path does not exist: %s", p)
		}
		if !st.IsDir() {
			fatal("not a directory: %s", p)
		}
	}

	serverUUID := id.ForServer(hostname(), cfg.Name).String()

	log.Info(fmt.Sprintf("%s %q (uuid: %s) on port %d", consts.AppName, cfg.Name, serverUUID, cfg.Port))
	log.Info("Scanning media directories:")
	for _, p := range cfg.Paths {
		log.Info("  " + p)
	}

	lib := scanner.Scan(cfg.Paths)
	if lib.Len() == 0 {
		fatal("no media files found in the provided paths - exiting")
	}

	mode := "IPv4 + IPv6"
	if cfg.Localhost {
		mode = "localhost only"
	}
	log.Info("Serving media library", "items", lib.Len(), "port", cfg.Port, "mode", mode)

	ctx := shutdownContext()
	if err := server.New(lib, cfg.Name, serverUUID).Run(ctx); err != nil {
		fatal("%s", err)
	}
}

// shutdownContext cancels on the first SIGINT/SIGTERM; a second signal
// force-exits without waiting for the graceful drain.
func shutdownContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
		<-sig
		fmt.Fprintf(os.Stderr, "\n%s: forced exit\n", consts.AppName)
		os.Exit(1)
	}()
	return ctx
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return consts.AppName
	}
	return host
}

// fatal prints a single error line to stderr and exits 1. Startup failures
// never produce stack traces or multi-line noise.
func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
