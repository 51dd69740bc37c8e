package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var (
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [image]",
		Short: "Show an image's format, size and frame timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], asJSON, noCache)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, asJSON, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	ins, err := runner.Inspect(ctx, data)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ins)
	}

	fmt.Println(StyleTitle.Render(input))
	printKeyValue("format", ins.Format)
	printKeyValue("size", fmt.Sprintf("%dx%d", ins.Width, ins.Height))
	printKeyValue("frames", strconv.Itoa(ins.Frames))
	if ins.Frames > 1 {
		loop := "forever"
		if ins.LoopCount > 0 {
			loop = plural(ins.LoopCount, "time")
		} else if ins.LoopCount < 0 {
			loop = "once"
		}
		printKeyValue("loop", loop)
		printKeyValue("duration", ins.Total.String())
		printKeyValue("delays", formatDelays(ins.Durations))
	}
	if ins.WouldUpscale {
		printKeyValue("upscale", fmt.Sprintf("yes, to %dx%d", ins.ScaledWidth, ins.ScaledHeight))
	} else {
		printKeyValue("upscale", "no")
	}
	return nil
}

// formatDelays renders per-frame delays compactly, collapsing runs:
// "100ms ×3, 50ms".
func formatDelays(ds []time.Duration) string {
	var out string
	for i := 0; i < len(ds); {
		j := i
		for j < len(ds) && ds[j] == ds[i] {
			j++
		}
		if out != "" {
			out += ", "
		}
		out += ds[i].String()
		if n := j - i; n > 1 {
			out += fmt.Sprintf(" ×%d", n)
		}
		i = j
	}
	return out
}
