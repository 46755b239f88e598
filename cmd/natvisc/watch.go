package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	natvis "github.com/effectus/natvis-go"
	"github.com/effectus/natvis-go/manager"
	"github.com/effectus/natvis-go/memhost"
)

var watchCmd = &cobra.Command{
	Use:   "watch [files...]",
	Short: "Reload visualizer files as they change",
	Long: `Watch visualizer files and reload them on every change. With --snapshot
the snapshot roots are rendered again after each reload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		files := sourceFiles(cfg, args)
		if len(files) == 0 {
			return fmt.Errorf("no input files specified")
		}
		snapshotPath, _ := cmd.Flags().GetString("snapshot")
		depth, _ := cmd.Flags().GetInt("depth")

		var snap *memhost.Snapshot
		h := memhost.New(memhost.WithLogger(logger))
		if snapshotPath != "" {
			if snap, err = memhost.LoadSnapshot(snapshotPath); err != nil {
				return err
			}
			h = snap.Host(memhost.WithLogger(logger))
		}

		vis := natvis.New(h, natvis.WithConfig(cfg), natvis.WithLogger(logger))
		out := cmd.OutOrStdout()
		render := func() {
			if snap == nil {
				return
			}
			for _, name := range snap.Names() {
				root, _ := snap.Root(name)
				renderValue(out, vis, root, depth)
			}
		}
		vis.Manager().OnChange(func(ev manager.Event) {
			fmt.Fprintf(out, "%s %s (%s)\n", ev.Kind, ev.Path, ev.Generation)
			if ev.Kind == manager.Reloaded {
				render()
			}
		})
		for _, path := range files {
			if _, err := vis.LoadFile(path); err != nil {
				return err
			}
		}
		render()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errs, err := vis.Manager().Watch(ctx)
		if err != nil {
			return err
		}
		for err := range errs {
			logger.Warn("reload failed", zap.Error(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("snapshot", "", "Snapshot to render after every reload")
	watchCmd.Flags().Int("depth", 1, "Levels of children to expand")
}
