package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openvault/vaultsync/internal/client/basestore"
	"github.com/openvault/vaultsync/internal/client/config"
	syncer "github.com/openvault/vaultsync/internal/client/sync"
	"github.com/openvault/vaultsync/internal/client/vault"
	"github.com/openvault/vaultsync/internal/sdk"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			resolver, err := resolverForStrategy(strategy)
			if err != nil {
				return err
			}

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			mgr, base, err := buildManager(settings, resolver, func(s syncer.Status) {
				if s.Message != "" {
					fmt.Printf("%s %s\n", cyan("::"), s.Message)
				}
			}, nil)
			if err != nil {
				return err
			}
			defer base.Close()

			if err := mgr.PerformSync(cmd.Context()); err != nil {
				return err
			}

			stats := mgr.Stats()
			fmt.Printf("%s pulled %d, pushed %d, conflicts %d, errors %d\n",
				green("done:"), stats.Pulled, stats.Pushed, stats.Conflicts, stats.Errors)
			if stats.AttachmentsPushed > 0 {
				fmt.Printf("%s %d attachments uploaded (%s)\n",
					green("done:"), stats.AttachmentsPushed, humanize.Bytes(uint64(stats.AttachmentBytes)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "S", "ask",
		"conflict strategy: ask, local, remote, or skip")
	return cmd
}

// buildManager wires the SDK, vault, base store and metadata cache into a
// sync manager. The caller closes the returned base store.
func buildManager(settings *config.Settings, resolver syncer.ConflictResolver, onStatus syncer.StatusFunc, onReset func()) (*syncer.Manager, *basestore.BaseStore, error) {
	api, err := sdk.New(&sdk.Config{
		BaseURL: settings.ServerURL,
		APIKey:  settings.APIKey,
		VaultID: settings.VaultID,
	})
	if err != nil {
		return nil, nil, err
	}

	v, err := vault.New(settings.VaultDir)
	if err != nil {
		return nil, nil, err
	}

	base, err := basestore.New(filepath.Join(filepath.Dir(settings.Path), "base.db"))
	if err != nil {
		return nil, nil, err
	}

	mgr := syncer.NewManager(syncer.ManagerOpts{
		API:      api,
		Vault:    v,
		Settings: settings,
		Meta:     config.NewMetadataCache(settings),
		Base:     base,
		Resolver: resolver,
		OnStatus: onStatus,
		OnReset:  onReset,
	})
	return mgr, base, nil
}

func resolverForStrategy(strategy string) (syncer.ConflictResolver, error) {
	switch strategy {
	case "ask":
		return syncer.ResolverFunc(promptResolve), nil
	case "local":
		return syncer.ResolverFunc(func(ctx context.Context, c *syncer.Conflict) syncer.Resolution {
			return syncer.ResolveUseLocal
		}), nil
	case "remote":
		return syncer.ResolverFunc(func(ctx context.Context, c *syncer.Conflict) syncer.Resolution {
			return syncer.ResolveUseRemote
		}), nil
	case "skip":
		return syncer.ResolverFunc(func(ctx context.Context, c *syncer.Conflict) syncer.Resolution {
			return syncer.ResolveCancel
		}), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// promptResolve asks on the terminal how to settle one conflict.
func promptResolve(ctx context.Context, c *syncer.Conflict) syncer.Resolution {
	fmt.Println()
	switch {
	case c.RequiresFullSync:
		fmt.Printf("%s %s: server can no longer sync incrementally\n", red("conflict"), c.Path)
		fmt.Print("Full re-sync required. Reset local sync state? [y/N] ")
		if readChoice() == "y" {
			return syncer.ResolveFullReset
		}
		return syncer.ResolveCancel
	case c.RemoteDeleted:
		fmt.Printf("%s %s: deleted on the server but edited locally\n", red("conflict"), c.Path)
	default:
		fmt.Printf("%s %s: both sides changed (%d overlapping regions)\n", red("conflict"), c.Path, len(c.Regions))
	}

	for {
		fmt.Print("Keep [l]ocal, keep [r]emote, or [s]kip? ")
		switch readChoice() {
		case "l":
			return syncer.ResolveUseLocal
		case "r":
			return syncer.ResolveUseRemote
		case "s", "":
			return syncer.ResolveCancel
		}
	}
}

var stdin = bufio.NewReader(os.Stdin)

func readLine() string {
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func readChoice() string {
	return strings.ToLower(readLine())
}
