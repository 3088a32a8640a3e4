package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/oshokin/release-keeper/internal/config"
	"github.com/oshokin/release-keeper/internal/service/installer"
)

var errConfigExists = errors.New("configuration file already exists")

func newInstallCommand() *cobra.Command {
	opts := &installer.Options{}

	command := &cobra.Command{
		Use:   "install",
		Short: "Converge the configured tool to the requested version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = configPath
			opts.LogLevel = logLevel

			result, err := installer.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n",
				result.Spec.Tool, result.Installed.Version, result.Installed.InstallPath)

			return nil
		},
	}

	command.Flags().StringVar(&opts.Version, "version", "", "version alias to install: latest or a semantic version")
	command.Flags().IntVar(&opts.RetentionCount, "retention", 0, "number of versions to keep, including the current one")

	return command
}

func newPruneCommand() *cobra.Command {
	opts := &installer.Options{}

	command := &cobra.Command{
		Use:   "prune",
		Short: "Delete old versions beyond the retention count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.ConfigPath = configPath
			opts.LogLevel = logLevel

			pruned, err := installer.Prune(cmd.Context(), opts)
			if err != nil {
				return err
			}

			for _, v := range pruned {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", v.Version)
			}

			return nil
		},
	}

	command.Flags().IntVar(&opts.RetentionCount, "retention", 0, "number of versions to keep, including the current one")

	return command
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed versions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			installations, err := installer.List(cmd.Context(), &installer.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding.
			_, _ = fmt.Fprintln(w, "VERSION\tCURRENT\tINSTALLED\tSOURCE")

			for _, inst := range installations {
				current := ""
				if inst.Current {
					current = "*"
				}

				source := "-"
				if inst.HasReceipt {
					source = inst.Receipt.URL
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					inst.Version, current, humanize.Time(inst.ModTime), source)
			}

			return w.Flush()
		},
	}
}

func newInitCommand() *cobra.Command {
	var force bool

	command := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the AWS CLI defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.ResolvePath(configPath)
			if err != nil {
				return err
			}

			if _, err = os.Stat(path); err == nil && !force {
				return fmt.Errorf("%w: %s", errConfigExists, path)
			}

			if err = config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)

			return nil
		},
	}

	command.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return command
}
