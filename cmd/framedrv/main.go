// Command framedrv inspects and manipulates framedrv device images.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keks/framedrv"
	"github.com/keks/framedrv/config"
	"github.com/keks/framedrv/device"
	"github.com/keks/framedrv/driver"
	"github.com/keks/framedrv/logging"
)

func main() {
	app := &cli.App{
		Name:  "framedrv",
		Usage: "block-oriented file storage over a frame device",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "device image path"},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "device backend (mem, file, badger)"},
			&cli.IntFlag{Name: "cache", Usage: "frame cache capacity"},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "log level (debug, info, warn, error, quiet)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "format",
				Usage:  "erase the image and lay out an empty file table",
				Action: cmdFormat,
			},
			{
				Name:   "ls",
				Usage:  "list files on the image",
				Action: cmdLs,
			},
			{
				Name:      "put",
				Usage:     "copy a local file onto the image",
				ArgsUsage: "<local> <name>",
				Action:    cmdPut,
			},
			{
				Name:      "get",
				Usage:     "copy a file from the image (to stdout or a local path)",
				ArgsUsage: "<name> [local]",
				Action:    cmdGet,
			},
			{
				Name:   "info",
				Usage:  "show image and cache statistics",
				Action: cmdInfo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "framedrv:", err)
		os.Exit(1)
	}
}

// setup resolves the configuration: file first, then flag overrides.
func setup(c *cli.Context) (config.Config, logging.Logger, error) {
	cfg := config.Defaults()

	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, nil, err
		}
	}

	if c.IsSet("image") {
		cfg.Image = c.String("image")
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("cache") {
		cfg.CacheCapacity = c.Int("cache")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	return cfg, logging.NewConsole(logging.ParseLevel(cfg.LogLevel)), nil
}

// openDevice builds the executor for the configured backend and returns
// it along with its cleanup function.
func openDevice(cfg config.Config) (framedrv.Executor, func() error, error) {
	switch cfg.Backend {
	case "mem":
		return device.NewMem(), func() error { return nil }, nil
	case "file":
		dev, err := device.OpenFile(cfg.Image)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	case "badger":
		dev, err := device.OpenBadger(cfg.Image)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// withDriver powers a driver on, runs fn, and powers back off.
func withDriver(c *cli.Context, fn func(drv *driver.Driver) error) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}

	exec, closeDev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closeDev()

	drv, err := driver.New(driver.Options{
		Executor:      exec,
		CacheCapacity: cfg.CacheCapacity,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	if err := drv.PowerOn(); err != nil {
		return err
	}

	if err := fn(drv); err != nil {
		// Still try to persist metadata for whatever succeeded.
		if offErr := drv.PowerOff(); offErr != nil {
			log.Warn("power off after failure: %v", offErr)
		}
		return err
	}

	return drv.PowerOff()
}

func cmdFormat(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}

	exec, closeDev, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closeDev()

	if err := exec.Execute(nil, framedrv.OpZeroMedia, 0); err != nil {
		return err
	}

	// A power cycle over the erased media lays out the empty file table.
	drv, err := driver.New(driver.Options{Executor: exec, CacheCapacity: cfg.CacheCapacity})
	if err != nil {
		return err
	}
	if err := drv.PowerOn(); err != nil {
		return err
	}
	return drv.PowerOff()
}

func cmdLs(c *cli.Context) error {
	return withDriver(c, func(drv *driver.Driver) error {
		files, err := drv.Files()
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%-32s %8d bytes  %3d frames\n", f.Name, f.Size, f.Frames)
		}
		return nil
	})
}

func cmdPut(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: put <local> <name>")
	}
	local, name := c.Args().Get(0), c.Args().Get(1)

	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}

	return withDriver(c, func(drv *driver.Driver) error {
		h, err := drv.Open(name)
		if err != nil {
			return err
		}
		if _, err := drv.Write(h, data); err != nil {
			return err
		}
		return drv.Close(h)
	})
}

func cmdGet(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("usage: get <name> [local]")
	}
	name := c.Args().Get(0)

	return withDriver(c, func(drv *driver.Driver) error {
		h, err := drv.Open(name)
		if err != nil {
			return err
		}

		size, err := drv.Size(h)
		if err != nil {
			return err
		}

		data := make([]byte, size)
		if _, err := drv.Read(h, data); err != nil {
			return err
		}
		if err := drv.Close(h); err != nil {
			return err
		}

		if c.NArg() == 2 {
			return os.WriteFile(c.Args().Get(1), data, 0644)
		}
		_, err = os.Stdout.Write(data)
		return err
	})
}

func cmdInfo(c *cli.Context) error {
	return withDriver(c, func(drv *driver.Driver) error {
		files, err := drv.Files()
		if err != nil {
			return err
		}

		var bytes int64
		var frames int
		for _, f := range files {
			bytes += f.Size
			frames += f.Frames
		}
		fmt.Printf("files:  %d of %d slots\n", len(files), framedrv.MaxFiles)
		fmt.Printf("data:   %d bytes over %d frames\n", bytes, frames)

		stats := drv.CacheStats()
		fmt.Printf("cache:  %d hits, %d misses, %d evictions\n", stats.Hits, stats.Misses, stats.Evictions)
		return nil
	})
}
