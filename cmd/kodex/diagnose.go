package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/domain/pipeline"
)

func diagnoseCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Print the pipeline's health status as JSON",
		Long: `Report {status, extracted_at, total_units, counts_by_type, git_sha,
git_branch, staleness_seconds}, combining the last
manifest with a live health ping against every configured store. Exits 3 if
the status comes back degraded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(flags)
		},
	}
}

func runDiagnose(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	var snap pipeline.ManifestSnapshot
	if client.Manifest.Exists() {
		cm, err := client.Manifest.Read()
		if err != nil {
			return runtimeErrorf("read manifest: %v", err)
		}
		ctx := context.Background()
		counts := make(map[string]int, len(allUnitTypes))
		total := 0
		for _, t := range allUnitTypes {
			units, err := client.Metadata.FindByType(ctx, string(t))
			if err != nil {
				return runtimeErrorf("count units by type: %v", err)
			}
			if len(units) > 0 {
				counts[string(t)] = len(units)
				total += len(units)
			}
		}
		snap = pipeline.ManifestSnapshot{
			ExtractedAt:  cm.GeneratedAt,
			TotalUnits:   total,
			CountsByType: counts,
			GitSHA:       cm.GitSHA,
		}
	}

	status := client.Reporter.Report(snap)
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return runtimeErrorf("marshal status: %v", err)
	}
	fmt.Println(string(out))

	if status.Status == "degraded" {
		return runtimeErrorf("pipeline degraded")
	}
	return nil
}
