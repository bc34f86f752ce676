package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kanrt/kan/container"
	"github.com/kanrt/kan/ids"
	"github.com/kanrt/kan/reference"
	"github.com/kanrt/kan/reference/repository"
	"github.com/kanrt/kan/reference/store"
	"github.com/kanrt/kan/reference/watch"
	"github.com/kanrt/kan/reflection"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "watch a workspace and run the reference manager tick loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, _ := container.GetResource[*logrus.Logger](resources)

		workspace := viper.GetString("workspace")
		cacheDir := filepath.Join(workspace, viper.GetString("cache_dir"))
		budgetNs := viper.GetInt64("budget_ns")
		workers := viper.GetInt("workers")

		w, err := watch.New(workspace)
		if err != nil {
			return fmt.Errorf("watch workspace: %w", err)
		}
		defer w.Close()

		cache, err := store.NewCache(cacheDir, 1024)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}

		ledger, err := store.Open(filepath.Join(cacheDir, "kangen.db"))
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer ledger.Close()

		repo := repository.New()
		bus := container.NewEventBus()
		provider := &watcherProvider{watcher: w}
		// kangen ships no populated registry of its own (the generated
		// module's struct set is a collaborator, not this CLI's concern), so
		// the referencer index is built over an empty registry: every entry
		// reference scan still runs, just with no umbrella fan-out targets.
		refIndex := reference.BuildReferencerIndex(reflection.NewRegistry())
		manager := reference.NewManager(repo, refIndex, cache, ledger, bus, provider, detectNone, logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		logger.WithFields(logrus.Fields{"workspace": workspace, "workers": workers}).Info("serve started")
		for {
			select {
			case <-ctx.Done():
				logger.Info("serve stopping")
				return nil
			case <-ticker.C:
				if err := manager.Tick(ctx, budgetNs, workers); err != nil {
					logger.WithError(err).Warn("tick failed")
				}
			case dir := <-w.Rescans():
				logger.WithField("dir", dir).Info("workspace rescan triggered")
			}
		}
	},
}

// watcherProvider is a minimal Provider backed only by the filesystem
// watcher: it has no notion of transient or plugin state and never opens a
// genuine resource request, since kangen itself ships no resource-loading
// backend (that collaborator is out of core, spec.md §4.5). It exists so
// `kangen serve` runs end to end against a bare workspace.
type watcherProvider struct {
	watcher *watch.Watcher
}

func (p *watcherProvider) TransientUpdateTime(repository.ResourceNativeEntry) int64 { return 0 }
func (p *watcherProvider) PluginUpdateTime(repository.ResourceNativeEntry) int64    { return 0 }

func (p *watcherProvider) SourceUpdateTime(entry repository.ResourceNativeEntry) (int64, error) {
	if t, ok := p.watcher.LastObserved(entry.Path); ok {
		return t.UnixNano(), nil
	}
	return 0, nil
}

func (p *watcherProvider) RequestContainer(repository.ResourceNativeEntry) ids.RequestId {
	return ids.InvalidRequestId
}

func (p *watcherProvider) ResolveContainer(ids.RequestId) (uint64, bool, bool) {
	return 0, false, true
}

func (p *watcherProvider) ScanDone() bool { return true }

func detectNone(entry repository.ResourceNativeEntry, containerID uint64) ([]store.ReferenceEntry, error) {
	return nil, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
