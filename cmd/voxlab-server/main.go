// voxlab-server serves scalar volumes from a directory of NetCDF files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/server"
	"github.com/taigrr/voxlab/pkg/store"
	"github.com/taigrr/voxlab/pkg/volume"
)

var (
	showHelp   = flag.Bool("help", false, "")
	configPath = flag.String("config", "", "")
	httpAddr   = flag.String("addr", "", "")
	samplesDir = flag.String("samples", "", "")
	workers    = flag.Int("workers", 0, "")
	cacheMB    = flag.Int("cache-mb", -1, "")
	logLevel   = flag.String("log", "info", "")
	synthSize  = flag.Int("size", 128, "")
)

const helpMessage = `
voxlab-server serves scalar volumes over HTTP

Usage: voxlab-server [options] [command]

      -config   =string   TOML configuration file.
      -addr     =string   Address for HTTP communication (default %s).
      -samples  =string   Directory scanned for .nc volumes (default %q).
      -workers  =number   Concurrent file reads; 0 uses all CPUs.
      -cache-mb =number   Resampled-result cache size; 0 disables it.
      -log      =string   Log level: debug, info, warning, error, critical or silent.
      -size     =number   Edge length of volumes written by synth.
  -h, -help     (flag)    Show help message

Commands:

	serve                 Serve volumes (the default).
	synth <dir>           Write the built-in synthetic volumes to dir.
	example-config <path> Write the default configuration as TOML.
`

func usage() {
	fmt.Printf(helpMessage, server.DefaultWebAddress, server.DefaultSamplesDir)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	mode, err := logging.ParseMode(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logging.SetLogMode(mode)

	if err := doCommand(flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func doCommand(args []string) error {
	if len(args) == 0 {
		return doServe()
	}
	switch args[0] {
	case "serve":
		return doServe()
	case "synth":
		if len(args) != 2 {
			return fmt.Errorf("usage: voxlab-server synth <dir>")
		}
		return doSynth(args[1], *synthSize)
	case "example-config":
		if len(args) != 2 {
			return fmt.Errorf("usage: voxlab-server example-config <path>")
		}
		return server.WriteExample(args[1])
	}
	return fmt.Errorf("unknown command %q, try -help", args[0])
}

// loadConfig reads the config file if one was given and applies flag
// overrides.
func loadConfig() (server.Config, error) {
	cfg := server.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = server.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddress = *httpAddr
	}
	if *samplesDir != "" {
		cfg.Server.SamplesDir = *samplesDir
	}
	if *workers > 0 {
		cfg.Server.Workers = *workers
	}
	if *cacheMB >= 0 {
		cfg.Server.CacheMB = *cacheMB
	}
	return cfg, nil
}

func doServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.SetLogger()
	defer logging.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tlog := logging.NewTimeLog()
	s, err := store.Open(ctx, cfg.Server.SamplesDir, cfg.Server.StoreOptions())
	if err != nil {
		return err
	}
	tlog.Infof("loaded %d volumes from %s", s.Len(), cfg.Server.SamplesDir)
	for _, info := range s.List() {
		logging.Infof("  %s: %s, %s", info.ID, info.Dims(), humanize.Bytes(uint64(info.FullResSize)))
	}

	err = server.New(s, cfg.Server).Serve(ctx, cfg.Server.HTTPAddress)
	if entries, rate := s.CacheStats(); entries > 0 {
		logging.Infof("result cache held %d entries, %.0f%% hit rate", entries, 100*rate)
	}
	return err
}

// doSynth writes every built-in generator's field at size^3 to dir. The
// files carry the sample prefix so /api/health lists them.
func doSynth(dir string, size int) error {
	if size <= 0 {
		return fmt.Errorf("synth size %d: must be positive", size)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	names := make([]string, 0, len(volume.Generators))
	for name := range volume.Generators {
		names = append(names, name)
	}
	sort.Strings(names)

	d := volume.Dims{X: size, Y: size, Z: size}
	for _, name := range names {
		path := filepath.Join(dir, server.DefaultSamplePrefix+"_"+name+"-"+strconv.Itoa(size)+".nc")
		f := volume.Generators[name](d)
		if err := store.WriteNetCDF(path, "volume", f); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s, %s)\n", path, d, humanize.Bytes(uint64(f.ByteSize())))
	}
	return nil
}
