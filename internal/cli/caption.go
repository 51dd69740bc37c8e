package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/pkg/caption"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/pipeline"
)

// defaultMention is the handle looked for by --from-text.
const defaultMention = "captioner"

type captionOpts struct {
	title     string
	profile   string
	center    bool
	dark      bool
	tagAuthor bool
	author    string
	placement string
	format    string
	output    string
	noCache   bool
	refresh   bool
	fromText  string
	mention   string
}

func (c *CLI) captionCommand() *cobra.Command {
	opts := captionOpts{mention: defaultMention}

	cmd := &cobra.Command{
		Use:   "caption [image]",
		Short: "Caption an image or animated GIF",
		Long: `Caption an image or animated GIF.

The title defaults to the input file name. Animated GIFs stay animated unless
a still output format is requested, in which case the first frame is used.

--from-text reads flags and a quoted title from free text such as a comment
that mentions the bot: 'u/captioner "Sunset over the bay" !center !dark'.

Use "-" to read the image from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCaption(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "caption text (default: input file name)")
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "caption profile: general (default), boot, or one from the config")
	cmd.Flags().BoolVar(&opts.center, "center", false, "center each caption line")
	cmd.Flags().BoolVar(&opts.dark, "dark", false, "white text on a black band")
	cmd.Flags().BoolVar(&opts.tagAuthor, "tag-author", false, "add an attribution line below the image")
	cmd.Flags().StringVar(&opts.author, "author", "", "author name for --tag-author")
	cmd.Flags().StringVar(&opts.placement, "placement", "", "override the profile's placement: above, below")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: png, jpeg, gif (default: same as input)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>_captioned.<ext>)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even if a cached result exists")
	cmd.Flags().StringVar(&opts.fromText, "from-text", "", "take flags and a quoted title from request text")
	cmd.Flags().StringVar(&opts.mention, "mention", opts.mention, "handle that precedes the quoted title in --from-text")

	return cmd
}

func (c *CLI) runCaption(ctx context.Context, input string, opts captionOpts) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	popts, err := opts.pipelineOptions(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Captioning...")
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))

	res, err := runner.Execute(ctx, data, popts)
	if err != nil {
		spinner.StopWithError("Caption failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Captioned %s", plural(res.Frames, "frame")))

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input, res.Format)
	}
	if err := errors.ValidateOutputPath(output); err != nil {
		return err
	}
	if err := os.WriteFile(output, res.Artifact, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Captioned %q", popts.Title)
	printFile(output)
	printResultStats(res)
	return nil
}

// pipelineOptions merges the flags, --from-text and the input name.
func (o captionOpts) pipelineOptions(input string) (pipeline.Options, error) {
	flags := caption.Flags{Center: o.center, Dark: o.dark, TagAuthor: o.tagAuthor}
	title := o.title

	if o.fromText != "" {
		fromText := caption.FlagsFromText(o.fromText)
		flags.Center = flags.Center || fromText.Center
		flags.Dark = flags.Dark || fromText.Dark
		flags.TagAuthor = flags.TagAuthor || fromText.TagAuthor
		if title == "" {
			quoted, ok := caption.ExtractQuotedTitle(o.fromText, o.mention)
			if !ok {
				return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "no quoted title after u/%s in --from-text", o.mention)
			}
			title = quoted
		}
	}
	if title == "" {
		title = defaultTitle(input)
	}

	return pipeline.Options{
		Title:     title,
		Profile:   o.profile,
		Flags:     flags.Names(),
		Author:    o.author,
		Format:    o.format,
		Placement: o.placement,
		Refresh:   o.refresh,
	}, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "input %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// defaultTitle turns "sunset_over-the.bay.jpg" into "sunset over-the.bay".
func defaultTitle(input string) string {
	if input == "-" {
		return ""
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.ReplaceAll(stem, "_", " "))
}

// defaultOutputPath places the result next to the input.
func defaultOutputPath(input, format string) string {
	if input == "-" {
		return "captioned" + codec.Extension(format)
	}
	stem := strings.TrimSuffix(input, filepath.Ext(input))
	return stem + "_captioned" + codec.Extension(format)
}
