package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/frobware/go-fastpath/settings"
)

// TimeoutCmd gets or sets the persisted delay-detach timeout.
type TimeoutCmd struct {
	Get TimeoutGetCmd `cmd:"" help:"Print the delay-detach timeout."`
	Set TimeoutSetCmd `cmd:"" help:"Set the delay-detach timeout."`
}

// TimeoutGetCmd prints the current delay-detach timeout.
type TimeoutGetCmd struct{}

// Run executes the timeout get command.
func (c *TimeoutGetCmd) Run(cli *CLI) error {
	store, err := openStore(cli)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println(store.DelayDetachTimeout())
	return nil
}

// TimeoutSetCmd sets the delay-detach timeout.
type TimeoutSetCmd struct {
	Duration time.Duration `arg:"" help:"New timeout (e.g., 5m or 30s)."`
}

// Run executes the timeout set command.
func (c *TimeoutSetCmd) Run(cli *CLI) error {
	store, err := openStore(cli)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetDelayDetachTimeout(c.Duration); err != nil {
		return err
	}

	fmt.Println(store.DelayDetachTimeout())
	return nil
}

func openStore(cli *CLI) (*settings.Store, error) {
	logger, err := cli.Logger()
	if err != nil {
		return nil, err
	}

	dirs, err := cli.RuntimeDirs()
	if err != nil {
		return nil, err
	}
	if err := dirs.EnsureDirectories(); err != nil {
		return nil, err
	}

	return settings.Open(context.Background(), dirs.DBPath(), logger)
}
