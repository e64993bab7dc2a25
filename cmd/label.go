package cmd

import (
	"fmt"
	"os"

	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/spf13/cobra"
)

var (
	labelOut     string
	labelFormat  string
	labelFlags   string
	labelProduct bool
)

var labelCmd = &cobra.Command{
	Use:   "label <unitNumber|productCode>",
	Short: "Render a printable label as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabel,
}

func init() {
	labelCmd.Flags().StringVarP(&labelOut, "out", "o", "", "output file, defaults to <value>.png")
	labelCmd.Flags().StringVar(&labelFormat, "format", "code128", "code128 or qr")
	labelCmd.Flags().StringVar(&labelFlags, "flags", "00", "flag characters appended to a unit number")
	labelCmd.Flags().BoolVar(&labelProduct, "product", false, "render a product code label")
	rootCmd.AddCommand(labelCmd)
}

func runLabel(cmd *cobra.Command, args []string) error {
	text := scan.LabelText(args[0], labelFlags)
	if labelProduct {
		text = scan.ProductLabelText(args[0])
	}

	var png []byte
	var err error
	switch labelFormat {
	case "code128":
		png, err = scan.Code128PNG(text)
	case "qr":
		png, err = scan.QRPNG(text, scan.DefaultQRSize)
	default:
		return fmt.Errorf("unknown label format %q", labelFormat)
	}
	if err != nil {
		return err
	}

	out := labelOut
	if out == "" {
		out = args[0] + ".png"
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write label: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, text)
	return nil
}
