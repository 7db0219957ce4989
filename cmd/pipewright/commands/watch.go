package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pipewright/pipewright/pkg/policy"
)

func newWatchCommand() *cobra.Command {
	var (
		providerFlag string
		policyDirs   []string
		noPolicies   bool
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-validate pipeline documents on change",
		Long: `Watch a directory of CUE pipeline documents and re-run validation
whenever a document changes. Useful while iterating on a pipeline.`,
		Example: `  # Watch the current directory
  pipewright watch

  # Watch a pipelines directory with team policies
  pipewright watch ./pipelines --policy-dir ./policies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer app.close(ctx)

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			provider, err := app.resolveProvider(providerFlag)
			if err != nil {
				return err
			}

			var policyEngine *policy.Engine
			if !noPolicies {
				policyEngine, err = newPolicyEngine(ctx, app.tel, policyDirs)
				if err != nil {
					return err
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			if err := addWatchTree(watcher, path); err != nil {
				return err
			}

			log := app.tel.Logger.NewComponentLogger("watch")
			log.WithField("path", path).Info("watching pipeline documents")

			// Edits to the user policy set hot-reload the engine and
			// re-validate, so policy changes take effect without a
			// restart.
			if policyEngine != nil && len(policyDirs) > 0 {
				loader := policy.NewLoader(app.tel.Logger.Zerolog())
				reload := func(policies []policy.Policy) error {
					if err := policyEngine.ReplacePolicies(ctx, policies); err != nil {
						return err
					}
					log.WithField("policies", len(policies)).Info("policy set reloaded")
					if err := validatePath(ctx, app, path, provider, policyEngine); err != nil {
						fmt.Fprintln(os.Stderr, err)
					}
					return nil
				}
				if err := loader.Watch(ctx, policyDirs, reload); err != nil {
					return err
				}
				defer loader.StopWatching()
			}

			// Initial pass so the user sees the current state immediately.
			if err := validatePath(ctx, app, path, provider, policyEngine); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}

			// Bursts of writes collapse into one validation run.
			var debounce *time.Timer
			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if !strings.HasSuffix(event.Name, ".cue") {
						continue
					}
					log.WithField("file", event.Name).Debug("pipeline document changed")

					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(300*time.Millisecond, func() {
						if err := validatePath(ctx, app, path, provider, policyEngine); err != nil {
							fmt.Fprintln(os.Stderr, err)
						}
					})

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.WithError(err).Error("watcher error")
				}
			}
		},
	}

	cmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "CI provider the policies evaluate against")
	cmd.Flags().StringSliceVar(&policyDirs, "policy-dir", nil, "additional policy files or directories")
	cmd.Flags().BoolVar(&noPolicies, "no-policies", false, "skip policy evaluation")

	return cmd
}

// addWatchTree registers a path, recursing into directories.
func addWatchTree(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
