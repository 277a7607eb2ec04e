package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/rtcorbin/ecsrun/dispatcher"
	"github.com/rtcorbin/ecsrun/internal/changelog"
	"github.com/rtcorbin/ecsrun/internal/config"
	"github.com/rtcorbin/ecsrun/internal/obslog"
	"github.com/rtcorbin/ecsrun/internal/registry"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ecsrun",
		Usage: "run a demo scheduler graph for a fixed number of frames",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "register demo systems, seal the graph, and drive N frames",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Value: "config/ecsrun.toml"},
					&cli.IntFlag{Name: "frames", Value: 5},
					&cli.StringFlag{Name: "profile", Usage: "cpu or mem, writes to ./profiles"},
				},
				Action: runCommand,
			},
		},
	}
}

func runCommand(c *cli.Context) error {
	cfgPath := c.String("config")
	if p := os.Getenv("ECSRUN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := obslog.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if mode := c.String("profile"); mode != "" {
		stop := startProfile(mode)
		defer stop()
	}

	shapeLog := changelog.New()
	writeLog := changelog.New()
	reg := registry.New(shapeLog)
	reg.AccessRecentlyDeletedData(cfg.Runtime.AccessRecentlyDeletedData)
	reg.RegisterComponentType(nil) // componentPosition
	reg.RegisterComponentType(nil) // componentVelocity
	reg.RegisterComponentType(nil) // componentDamaged

	d := dispatcher.New(reg, shapeLog, writeLog, log)
	d.Register("spawner", &spawnerSystem{count: 8})
	d.Register("movement", &movementSystem{})
	d.Register("damage", &damageSystem{})
	d.Register("report", &reportSystem{})

	if err := d.Build(); err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}

	if err := d.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// report needs the query handles movement/damage built for it, wired
	// after Build so Execute can print their population each frame.
	report := d.ContainerBehavior("report").(*reportSystem)
	report.moving = d.ContainerBehavior("movement").(*movementSystem).moving
	report.damaged = d.ContainerBehavior("damage").(*damageSystem).damaged

	frames := c.Int("frames")
	interval := cfg.Runtime.FrameInterval
	t := time.Now()
	for i := 0; i < frames; i++ {
		t = t.Add(interval)
		if err := d.RunFrame(t, interval); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func startProfile(mode string) func() {
	switch mode {
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath("./profiles")).Stop
	default:
		return profile.Start(profile.CPUProfile, profile.ProfilePath("./profiles")).Stop
	}
}
