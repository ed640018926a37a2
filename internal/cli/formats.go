package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/structscan/structscan/internal/detect"
)

// formatsCmd represents the formats command
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported file formats and the processors that handle them",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry()
		if err != nil {
			return err
		}

		table := detect.New().ExtensionTable()
		exts := make([]string, 0, len(table))
		for ext := range table {
			exts = append(exts, ext)
		}
		sort.Strings(exts)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EXTENSION\tMIME TYPE\tPROCESSOR")
		for _, ext := range exts {
			mime := table[ext]
			name := "-"
			if p := registry.ProcessorFor(mime); p != nil {
				name = p.Name()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", ext, mime, name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
