package cmd

import (
	"fmt"
	"os"

	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <image>",
	Short: "Read a unit or product label from a PNG or JPEG image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		decoded, err := scan.NewImageDecoder().DecodeBytes(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", decoded.Field, decoded.Format, decoded.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
