// Command medialib is the terminal client for the medialib API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medialib/internal/client"
)

var (
	apiURL  string
	timeout time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "medialib",
		Short:         "Search the catalog and manage your library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides config)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")

	root.AddCommand(loginCmd(), registerCmd(), logoutCmd(), whoamiCmd())
	root.AddCommand(resourceCmd("media", "Browse the media catalog"))
	root.AddCommand(resourceCmd("characters", "Browse characters"))
	root.AddCommand(libraryCmd())
	root.AddCommand(explainCmd(), recentCmd(), watchCmd())
	return root
}

// app is the per-invocation state: the loaded config and an API client
// whose session is persisted back by save.
type app struct {
	cfg *client.Config
	api *client.Client
}

func loadApp() (*app, error) {
	cfg, err := client.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	return &app{
		cfg: cfg,
		api: client.New(cfg.APIURL, client.SessionFromConfig(cfg), timeout),
	}, nil
}

func (a *app) save() error {
	a.api.Session().Store(a.cfg)
	return a.cfg.Save()
}

func (a *app) requireLogin() error {
	if a.api.Session().Token() == "" {
		return fmt.Errorf("not logged in, run 'medialib login' first")
	}
	return nil
}
