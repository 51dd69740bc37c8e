package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// The CLI's logger is attached to every command's context, so helpers can
// reach it through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Captioner puts a title bar above or below an image",
		Long: `Captioner renders a title onto a white (or black) band attached to an
image. Still images and animated GIFs are supported; small inputs are
upscaled first so the caption stays legible.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/captioner/config.toml)")

	root.AddCommand(c.captionCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.profilesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(completionCommand())

	return root
}
