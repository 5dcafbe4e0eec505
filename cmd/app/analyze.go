package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"FinInfluence/internal/di"
	"FinInfluence/internal/usecase"
	"FinInfluence/pkg/config"
)

func analyzeCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one snapshot file and print the result envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			// stdout carries the result.
			cfg.Log.Output = "stderr"

			body, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			analyzer, cleanup, err := di.InitializeAnalyzer(cfg)
			if err != nil {
				return fmt.Errorf("analyzer initialization failed: %w", err)
			}
			defer cleanup()

			return runAnalyze(cmd.Context(), analyzer, body, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "snapshot JSON file, - for stdin")
	return cmd
}

func readInput(file string, stdin io.Reader) ([]byte, error) {
	if file == "" || file == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return b, nil
}

func runAnalyze(ctx context.Context, analyzer usecase.Analyzer, body []byte, out io.Writer) error {
	snaps, err := usecase.ParseSnapshots(ctx, body)
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(ctx, snaps)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Response())
}
