package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kodexhq/kodex/application/invalidate"
	"github.com/kodexhq/kodex/domain/manifest"
	"github.com/kodexhq/kodex/domain/pipeline"
	"github.com/kodexhq/kodex/domain/unit"
)

// allUnitTypes is every tag in unit's closed Type vocabulary, used to walk
// the MetadataStore for the previous extraction's content hashes since it
// offers no "find everything" query.
var allUnitTypes = []unit.Type{
	unit.TypeModel, unit.TypeController, unit.TypeService, unit.TypeJob,
	unit.TypeMailer, unit.TypeComponent, unit.TypeGraphQLMutation,
	unit.TypeGraphQLResolver, unit.TypeGraphQLType, unit.TypeRailsSource,
	unit.TypeDecorator, unit.TypeConcern, unit.TypePolicy, unit.TypeValidator,
	unit.TypeManager, unit.TypeRubyClass, unit.TypeRubyMethod,
}

// unitInput is the JSON wire shape an external extraction collaborator
// (the language-specific parser, out of scope for this module) hands the
// extract command: one entry per ExtractedUnit.
type unitInput struct {
	Identifier string                    `json:"identifier"`
	Type       string                    `json:"type"`
	Namespace  string                    `json:"namespace"`
	FilePath   string                    `json:"file_path"`
	SourceCode *string                   `json:"source_code,omitempty"`
	Metadata   map[string]any            `json:"metadata,omitempty"`
	Dependencies []dependencyInput       `json:"dependencies,omitempty"`
}

type dependencyInput struct {
	Target string `json:"target"`
	Type   string `json:"type"`
	Via    string `json:"via"`
}

func extractCmd(flags *globalFlags) *cobra.Command {
	var (
		unitsPath      string
		gitSHA         string
		previousGitSHA string
	)

	cmd := &cobra.Command{
		Use:   "extract <units.json>",
		Short: "Index a batch of externally-extracted units",
		Long: `Read a JSON array of units produced by an extraction collaborator, diff
them against the currently stored units by content hash, and reindex the
added/modified set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitsPath = args[0]
			return runExtract(flags, unitsPath, gitSHA, previousGitSHA)
		},
	}

	cmd.Flags().StringVar(&gitSHA, "git-sha", "", "Git SHA this extraction pass was taken at")
	cmd.Flags().StringVar(&previousGitSHA, "previous-git-sha", "", "Git SHA the previous manifest was taken at")

	return cmd
}

func runExtract(flags *globalFlags, unitsPath, gitSHA, previousGitSHA string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	units, err := loadUnits(unitsPath)
	if err != nil {
		return configErrorf("load units file: %v", err)
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			client.Logger.Error("failed to close kodex client", slog.Any("error", err))
		}
	}()
	slogger := client.Logger.Slog()
	ctx := context.Background()
	slogger.LogAttrs(ctx, slog.LevelDebug, "active configuration", cfg.LogAttrs()...)

	if !client.Guard.Allow(pipeline.KindExtraction) {
		fmt.Println(`{"status":"rate-limited"}`)
		return nil
	}

	previous, err := previousHashes(ctx, client.Metadata)
	if err != nil {
		return runtimeErrorf("load previous unit hashes: %v", err)
	}

	changes := client.Invalidator.Diff(units, previous, gitSHA, previousGitSHA)
	if err := changes.Validate(); err != nil {
		return runtimeErrorf("invalid change manifest: %v", err)
	}

	byID := make(map[string]unit.ExtractedUnit, len(units))
	for _, u := range units {
		byID[u.Identifier()] = u
		if err := client.Metadata.Store(ctx, u); err != nil {
			return runtimeErrorf("store unit %s: %v", u.Identifier(), err)
		}
		if err := client.Graph.Register(ctx, u); err != nil {
			return runtimeErrorf("register unit %s: %v", u.Identifier(), err)
		}
	}
	for _, id := range changes.Changes.Deleted {
		if err := client.Metadata.Delete(ctx, id); err != nil {
			slogger.Warn("delete stale unit", slog.String("id", id), slog.Any("error", err))
		}
	}

	if err := client.Manifest.Write(changes); err != nil {
		return runtimeErrorf("write manifest: %v", err)
	}
	if err := client.Guard.Record(pipeline.KindExtraction); err != nil {
		return runtimeErrorf("record extraction guard: %v", err)
	}

	if client.Embedder != nil {
		result, err := client.Indexer.Reindex(ctx, changes.Changes, byID)
		if err != nil {
			return runtimeErrorf("reindex embeddings: %v", err)
		}
		slogger.Info("extraction complete",
			slog.Int("embedded", result.Embedded), slog.Int("deleted", result.Deleted))
	}

	out, _ := json.Marshal(map[string]any{"status": "started", "summary": changes.Summary})
	fmt.Println(string(out))
	return nil
}

func previousHashes(ctx context.Context, metadata interface {
	FindByType(ctx context.Context, t string) ([]unit.ExtractedUnit, error)
}) (invalidate.PreviousHashes, error) {
	hashes := make(invalidate.PreviousHashes)
	for _, t := range allUnitTypes {
		existing, err := metadata.FindByType(ctx, string(t))
		if err != nil {
			return nil, err
		}
		for _, u := range existing {
			hashes[u.Identifier()] = manifest.ContentHash(u)
		}
	}
	return hashes, nil
}

func loadUnits(path string) ([]unit.ExtractedUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inputs []unitInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, err
	}
	units := make([]unit.ExtractedUnit, 0, len(inputs))
	for _, in := range inputs {
		deps := make([]unit.Dependency, len(in.Dependencies))
		for i, d := range in.Dependencies {
			deps[i] = unit.Dependency{Target: d.Target, Type: d.Type, Via: unit.DependencyVia(d.Via)}
		}
		u, err := unit.New(in.Identifier, unit.Type(in.Type), in.Namespace, in.FilePath, in.SourceCode, in.Metadata, deps)
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", in.Identifier, err)
		}
		units = append(units, u)
	}
	return units, nil
}
