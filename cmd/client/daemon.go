package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	syncer "github.com/openvault/vaultsync/internal/client/sync"
	"github.com/openvault/vaultsync/internal/client/watch"
	"github.com/openvault/vaultsync/internal/version"
)

// saveDebounce batches editor write bursts into one sync.
const saveDebounce = 1 * time.Second

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

func newDaemonCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Sync the vault continuously in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			slog.Info("vaultsync", "version", version.Version, "revision", version.Revision)

			resolver, err := resolverForStrategy(strategy)
			if err != nil {
				return err
			}

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			// One daemon per settings file.
			lock := flock.New(filepath.Join(filepath.Dir(settings.Path), "daemon.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !locked {
				return errors.New("another daemon is already running for this vault")
			}
			defer lock.Unlock()

			kick := make(chan struct{}, 1)
			nudge := func() {
				select {
				case kick <- struct{}{}:
				default:
				}
			}

			mgr, base, err := buildManager(settings, resolver, func(s syncer.Status) {
				slog.Debug("sync status", "state", s.State, "message", s.Message)
			}, nudge)
			if err != nil {
				return err
			}
			defer base.Close()

			ctx := cmd.Context()

			if settings.SyncOnSave {
				stop, err := watchVault(ctx, settings.VaultDir, nudge)
				if err != nil {
					return err
				}
				defer stop()
			}

			if settings.SyncOnStartup {
				nudge()
			}

			interval := time.Duration(settings.SyncInterval) * time.Second
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			slog.Info("daemon running", "vault", settings.VaultDir, "interval", interval)

			defer slog.Info("Bye!")
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if !settings.AutoSync {
						continue
					}
				case <-kick:
				}

				if err := mgr.PerformSync(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("sync failed", "error", err)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "S", "skip",
		"conflict strategy: local, remote, or skip")
	return cmd
}

// watchVault debounces file events under dir into nudge calls.
func watchVault(ctx context.Context, dir string, nudge func()) (func(), error) {
	w, err := watch.New()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Stop()
		return nil, err
	}

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, watch.ErrWatcherClosed) {
			slog.Error("watcher stopped", "error", err)
		}
	}()

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(saveDebounce, nudge)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("watch error", "error", err)
			}
		}
	}()

	return func() { w.Stop() }, nil
}
