package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agenthands/redline/internal/config"
	"github.com/agenthands/redline/internal/core"
	"github.com/agenthands/redline/internal/core/correction"
	"github.com/agenthands/redline/internal/core/model"
	"github.com/agenthands/redline/internal/llm"
)

var correctCmd = &cobra.Command{
	Use:   "correct [flags]",
	Short: "Correct one attempt and print the overlays",
	Long:  `Correct runs the configured corrector on a single attempt. With --simple it uses the offline rules and needs no model`,
	Args:  cobra.NoArgs,
	RunE:  runCorrect,
}

func init() {
	correctCmd.Flags().String("zh", "", "source sentence")
	correctCmd.Flags().String("en", "", "attempted translation")
	correctCmd.Flags().String("config", "", "path to a TOML config (defaults to CONFIG_PATH)")
	correctCmd.Flags().Bool("simple", false, "use the offline rule corrector")
	correctCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	_ = correctCmd.MarkFlagRequired("en")
}

func runCorrect(cmd *cobra.Command, args []string) error {
	zh, _ := cmd.Flags().GetString("zh")
	en, _ := cmd.Flags().GetString("en")
	simple, _ := cmd.Flags().GetBool("simple")
	format, _ := cmd.Flags().GetString("format")
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.LookupEnv)
	if simple {
		cfg.Correction.ForceSimple = true
	}

	ctx := cmd.Context()
	corrector := &correction.FallbackCorrector{
		Fallback:        &correction.RuleCorrector{NewID: core.NewID},
		ForceFallback:   cfg.Correction.ForceSimple,
		FallbackOnError: cfg.Correction.AllowFallbackOnFailure,
	}
	if !cfg.Correction.ForceSimple {
		client, err := llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		corrector.Primary = correction.NewLLMCorrector(client, cfg.Prompts.Correction, core.NewID)
	}

	res, err := corrector.Correct(ctx, model.CorrectionRequest{Source: zh, Attempt: en})
	if err != nil {
		return fmt.Errorf("correction failed: %w", err)
	}
	doc := document{Attempt: en, Corrected: res.Corrected, Annotations: res.Annotations}

	switch format {
	case "pretty":
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "score: %d\n", res.Score)
		printDocument(out, doc, "both", "", colorPainter)
		return nil
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			document
			Score int `json:"score"`
			projection
		}{doc, res.Score, projectDocument(doc, "both", "")})
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
