package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilkoid/creative-sorter/pkg/classifier"
	"github.com/ilkoid/creative-sorter/pkg/hierarchy"
)

func newParseCommand() *cobra.Command {
	var levels string

	cmd := &cobra.Command{
		Use:   "parse <filename>...",
		Short: "Parse creative filenames and show the extracted attributes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := levelsFromFlag(levels)
			out := cmd.OutOrStdout()
			for _, name := range args {
				fmt.Fprintln(out, renderParsed(name, settings))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&levels, "levels", "", "Comma-separated hierarchy fields to preview the target folder (e.g. country,audience)")
	return cmd
}

// levelsFromFlag строит иерархию из списка полей: позиция = порядок в списке.
func levelsFromFlag(raw string) hierarchy.Settings {
	var s hierarchy.Settings
	for i, name := range strings.Split(raw, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s.Levels = append(s.Levels, hierarchy.NewLevel(name, i))
	}
	return s
}

func renderParsed(filename string, settings hierarchy.Settings) string {
	attrs, ok := classifier.Parse(filename)
	if !ok {
		return warnStyle.Render("Not a creative name: ") + filename
	}

	rows := [][]string{
		{"country", attrs.Country()},
		{"language", attrs.Language()},
		{"buyout_code", attrs.BuyoutCode},
		{"concept", attrs.Concept},
		{"audience", attrs.Audience},
		{"transaction_side", attrs.TransactionSide},
		{"asset_format", attrs.AssetFormat},
		{"duration", attrs.Duration},
		{"file_format", attrs.FileFormat},
	}

	if len(settings.Levels) > 0 {
		a := classifier.NewAsset(attrs.OriginalFilename, attrs)
		rows = append(rows, []string{"folder", hierarchy.Path("", hierarchy.Resolve(a, settings), attrs.OriginalFilename)})
	}

	return titleStyle.Render(attrs.OriginalFilename) + "\n" +
		renderTable([]string{"Field", "Value"}, rows, nil)
}
