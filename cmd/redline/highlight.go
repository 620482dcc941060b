package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/redline/internal/core/align"
	"github.com/agenthands/redline/internal/core/model"
)

// document is a correction result together with the attempt it was made on,
// as saved from POST /correct.
type document struct {
	Attempt     string             `json:"en"`
	Corrected   string             `json:"corrected"`
	Annotations []model.Annotation `json:"errors"`
}

var highlightCmd = &cobra.Command{
	Use:   "highlight [flags] file.json",
	Short: "Print highlight overlays for a saved correction",
	Long:  `Highlight reads a correction JSON document ({en, corrected, errors}) and prints the annotations projected onto both texts`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

func init() {
	highlightCmd.Flags().String("mode", "both", "which text to project onto (original|corrected|both)")
	highlightCmd.Flags().String("type", "", "only show one error type")
	highlightCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	mode, _ := cmd.Flags().GetString("mode")
	typ, _ := cmd.Flags().GetString("type")
	format, _ := cmd.Flags().GetString("format")

	var cat model.Category
	if typ != "" {
		if cat, err = model.ParseCategory(typ); err != nil {
			return err
		}
	}
	if mode != "both" && mode != "original" && mode != "corrected" {
		return fmt.Errorf("unknown mode: %s", mode)
	}

	switch format {
	case "pretty":
		printDocument(cmd.OutOrStdout(), doc, mode, cat, colorPainter)
		return nil
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(projectDocument(doc, mode, cat))
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

type projection struct {
	Original  []model.Highlight `json:"originalHighlights,omitempty"`
	Corrected []model.Highlight `json:"correctedHighlights,omitempty"`
}

func projectDocument(doc document, mode string, cat model.Category) projection {
	var p projection
	if mode != "corrected" {
		p.Original = align.FilterByCategory(align.ComputeHighlights(doc.Attempt, doc.Annotations), cat)
	}
	if mode != "original" {
		p.Corrected = align.FilterByCategory(align.ComputeHighlightsInCorrected(doc.Corrected, doc.Annotations), cat)
	}
	return p
}

func printDocument(w io.Writer, doc document, mode string, cat model.Category, paint painter) {
	p := projectDocument(doc, mode, cat)

	var anns []model.Annotation
	for _, a := range doc.Annotations {
		if cat == "" || a.Category == cat {
			anns = append(anns, a)
		}
	}

	if mode != "corrected" {
		fmt.Fprintln(w, "attempt:")
		fmt.Fprintln(w, "  "+overlay(doc.Attempt, p.Original, paint))
		legend(w, doc.Attempt, anns, p.Original, paint)
	}
	if mode != "original" {
		var suggested []model.Annotation
		for _, a := range anns {
			if a.Suggestion != "" {
				suggested = append(suggested, a)
			}
		}
		fmt.Fprintln(w, "corrected:")
		fmt.Fprintln(w, "  "+overlay(doc.Corrected, p.Corrected, paint))
		legend(w, doc.Corrected, suggested, p.Corrected, paint)
	}
}
