package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/vishvananda/netlink"

	"github.com/frobware/go-fastpath/generic"
	"github.com/frobware/go-fastpath/pipeline"
	"github.com/frobware/go-fastpath/registry"
	"github.com/frobware/go-fastpath/settings"
)

// ServeCmd attaches the fast path to the configured interfaces and
// blocks until SIGINT or SIGTERM, then detaches everything.
type ServeCmd struct {
	Object     string   `name:"object" help:"BPF object file with the rx and tx programs (overrides config)."`
	Interfaces []string `name:"interface" short:"i" help:"Interface names to serve (overrides config)."`
}

// attachment is one interface's pipeline and datapath pair.
type attachment struct {
	name     string
	pipeline *pipeline.XDP
	generic  *generic.Generic
}

// Run executes the serve command.
func (c *ServeCmd) Run(cli *CLI) error {
	logger, err := cli.LoggerFromConfig()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appConfig, err := cli.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	objectPath := c.Object
	if objectPath == "" {
		objectPath = appConfig.Datapath.ObjectPath
	}

	interfaces := c.Interfaces
	if len(interfaces) == 0 {
		interfaces = appConfig.Datapath.Interfaces
	}
	if len(interfaces) == 0 {
		return fmt.Errorf("no interfaces configured; use --interface or set datapath.interfaces")
	}

	dirs, err := cli.RuntimeDirs()
	if err != nil {
		return err
	}
	if err := dirs.EnsureDirectories(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := settings.Open(ctx, dirs.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}
	defer store.Close()

	reg := registry.New(logger)

	var attachments []attachment
	defer func() {
		// Detach in reverse attach order.
		for i := len(attachments) - 1; i >= 0; i-- {
			a := attachments[i]
			a.generic.Detach()
			if err := a.pipeline.Close(); err != nil {
				logger.Warn("failed to close pipeline",
					"interface", a.name, "error", err)
			}
		}
	}()

	for _, name := range interfaces {
		link, err := netlink.LinkByName(name)
		if err != nil {
			return fmt.Errorf("lookup interface %s: %w", name, err)
		}
		ifindex := link.Attrs().Index

		p, err := pipeline.New(pipeline.Config{
			Ifindex:    ifindex,
			ObjectPath: objectPath,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("create pipeline for %s: %w", name, err)
		}

		g, err := generic.New(generic.Config{
			IfIndex:  ifindex,
			Pipeline: p,
			Registry: reg,
			Timeouts: store,
			Logger:   logger,
		})
		if err != nil {
			p.Close()
			return fmt.Errorf("create datapath for %s: %w", name, err)
		}
		p.Bind(g)

		if err := g.Attach(); err != nil {
			g.Detach()
			p.Close()
			return fmt.Errorf("attach %s: %w", name, err)
		}

		attachments = append(attachments, attachment{name: name, pipeline: p, generic: g})
		logger.Info("serving interface", "interface", name, "ifindex", ifindex)
	}

	<-ctx.Done()
	logger.Info("received signal, shutting down")
	return nil
}
