package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Inspect correction annotations in the terminal",
	Long:  `redline projects correction annotations onto the attempted and corrected texts and prints them as coloured overlays`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		mode, _ := cmd.Flags().GetString("color")
		switch mode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		default:
			color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(highlightCmd)
	rootCmd.AddCommand(correctCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
