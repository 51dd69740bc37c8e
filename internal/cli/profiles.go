package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/pkg/caption"
)

func (c *CLI) profilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List caption profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			profiles, err := cfg.Profiles()
			if err != nil {
				return err
			}
			fmt.Println(profileTable(profiles))
			return nil
		},
	}
}

func profileTable(profiles caption.ProfileSet) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cell := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(profiles))
	for _, name := range profiles.Names() {
		p := profiles[name]
		if name == caption.DefaultProfileName {
			name += " *"
		}
		rows = append(rows, []string{name, "width/" + strconv.Itoa(p.FontScaleFactor), p.Policy.String(), p.Placement.String()})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Profile", "Font size", "Lines", "Placement").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 {
				return cell.Foreground(colorCyan)
			}
			return cell
		})
	return t.Render()
}
