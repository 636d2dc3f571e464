package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/anpr/internal/model"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <asset files>",
	Short: "Print model asset headers",
	Long: `Parse model asset files and print their header fields: schema version,
input and output tensor shapes, and embedded graph size.

Examples:
  anpr inspect models/detection.anpm
  anpr inspect models/*.anpm --format json`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out := cmd.OutOrStdout()

		type header struct {
			Path        string  `json:"path"`
			Version     uint32  `json:"version"`
			InputShape  []int64 `json:"input_shape"`
			OutputShape []int64 `json:"output_shape"`
			GraphBytes  int     `json:"graph_bytes"`
		}

		for _, path := range args {
			a, err := model.LoadFile(path)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			h := header{
				Path:        path,
				Version:     a.Version,
				InputShape:  a.InputShape,
				OutputShape: a.OutputShape,
				GraphBytes:  len(a.Graph),
			}
			if format == "json" {
				if err := json.NewEncoder(out).Encode(h); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(out, "%s\n", h.Path)
			fmt.Fprintf(out, "  version:      %d\n", h.Version)
			fmt.Fprintf(out, "  input shape:  %v\n", h.InputShape)
			fmt.Fprintf(out, "  output shape: %v\n", h.OutputShape)
			fmt.Fprintf(out, "  graph size:   %d bytes\n", h.GraphBytes)
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().String("format", "text", "output format (text, json)")
	rootCmd.AddCommand(inspectCmd)
}
