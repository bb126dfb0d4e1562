// Package main provides the GraphScout CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/discovery"
	"github.com/orneryd/graphscout/pkg/model"
	"github.com/orneryd/graphscout/pkg/rules"
	"github.com/orneryd/graphscout/pkg/snapshot"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphscout",
		Short: "GraphScout - Relationship Discovery Engine",
		Long: `GraphScout discovers non-obvious relationships in business
knowledge graphs: explicit rule-based links, multi-hop bridges,
temporal correlations, and structural patterns.

Discovery runs over named snapshots imported from YAML input files.`,
	}

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("GraphScout v%s (%s)\n", version, commit)
		},
	})

	// Discover command
	discoverCmd := &cobra.Command{
		Use:   "discover [snapshot]",
		Short: "Run relationship discovery over a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiscover,
	}
	discoverCmd.Flags().String("data-dir", "./data", "Snapshot data directory")
	discoverCmd.Flags().String("config", "", "Configuration file (YAML)")
	discoverCmd.Flags().String("rules", "", "Relationship rules file (YAML)")
	discoverCmd.Flags().Float64("min-confidence", 0, "Drop relationships below this confidence")
	discoverCmd.Flags().StringSlice("exclude-kind", nil, "Relationship kinds to exclude (repeatable)")
	discoverCmd.Flags().StringSlice("focus", nil, "Entity ids to focus on (repeatable)")
	discoverCmd.Flags().Duration("timeout", 2*time.Minute, "Discovery timeout")
	rootCmd.AddCommand(discoverCmd)

	// Patterns command
	patternsCmd := &cobra.Command{
		Use:   "patterns [snapshot]",
		Short: "Detect structural patterns in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runPatterns,
	}
	patternsCmd.Flags().String("data-dir", "./data", "Snapshot data directory")
	patternsCmd.Flags().String("config", "", "Configuration file (YAML)")
	patternsCmd.Flags().String("rules", "", "Relationship rules file (YAML)")
	rootCmd.AddCommand(patternsCmd)

	// Snapshot commands
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage input snapshots",
	}
	importCmd := &cobra.Command{
		Use:   "import [input.yaml]",
		Short: "Import an input file as a named snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotImport,
	}
	importCmd.Flags().String("data-dir", "./data", "Snapshot data directory")
	importCmd.Flags().String("name", "", "Snapshot name (required)")
	snapshotCmd.AddCommand(importCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE:  runSnapshotList,
	}
	listCmd.Flags().String("data-dir", "./data", "Snapshot data directory")
	snapshotCmd.AddCommand(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotDelete,
	}
	deleteCmd.Flags().String("data-dir", "./data", "Snapshot data directory")
	snapshotCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newEngine(cmd *cobra.Command) (*discovery.Engine, error) {
	configPath, _ := cmd.Flags().GetString("config")
	rulesPath, _ := cmd.Flags().GetString("rules")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	ruleSet, err := rules.LoadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return discovery.NewEngine(cfg, ruleSet, nil, nil)
}

func loadSnapshot(cmd *cobra.Command, name string) (*snapshot.Snapshot, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := snapshot.Open(dataDir)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(name)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	excludeKinds, _ := cmd.Flags().GetStringSlice("exclude-kind")
	focus, _ := cmd.Flags().GetStringSlice("focus")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd, args[0])
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	dctx := model.DiscoveryContext{MinConfidence: minConfidence}
	if len(excludeKinds) > 0 {
		dctx.ExcludedKinds = make(map[model.RelationshipKind]bool, len(excludeKinds))
		for _, k := range excludeKinds {
			dctx.ExcludedKinds[model.RelationshipKind(strings.ToUpper(k))] = true
		}
	}
	if len(focus) > 0 {
		dctx.FocusEntities = make(map[string]bool, len(focus))
		for _, id := range focus {
			dctx.FocusEntities[id] = true
		}
	}

	fmt.Printf("🔍 Discovering relationships in snapshot %q\n", args[0])
	fmt.Printf("   Entities:      %d\n", len(snap.Entities))
	fmt.Printf("   Seed links:    %d\n", len(snap.Relationships))
	fmt.Printf("   Events:        %d\n", len(snap.Events))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	result, err := engine.Discover(ctx, discovery.Input{
		Entities:      snap.Entities,
		Relationships: snap.Relationships,
		Events:        snap.Events,
	}, dctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	fmt.Printf("✅ Found %d relationships in %s\n\n", len(result.Relationships), time.Since(start).Round(time.Millisecond))
	for _, r := range result.Relationships {
		arrow := "→"
		if r.Direction == model.Bidirectional {
			arrow = "↔"
		}
		fmt.Printf("   %-24s %s %-24s %-20s conf=%.2f %s\n",
			r.Source.ID, arrow, r.Target.ID, r.Kind, r.Confidence, r.Strength)
		if hops := r.PathLength(); hops > 0 {
			fmt.Printf("      via %s (%d hops)\n", pathString(r.Path), hops)
		}
	}

	if len(result.Patterns) > 0 {
		fmt.Printf("\n🧩 Structural patterns: %d\n", len(result.Patterns))
		for _, p := range result.Patterns {
			fmt.Printf("   %-10s %d entities  importance=%.2f\n", p.Type, len(p.Entities), p.Importance)
		}
	}

	if len(result.Correlations) > 0 {
		fmt.Printf("\n📈 Temporal correlations: %d\n", len(result.Correlations))
		for _, c := range result.Correlations {
			fmt.Printf("   %s / %s: r=%.2f lag=%d causality=%.2f (%s)\n",
				c.EntityA.ID, c.EntityB.ID, c.Coefficient, c.OptimalLag, c.CausalityScore, c.Method)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\n⚠️  Warnings: %d\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("   %s\n", w)
		}
	}
	for task, err := range result.TaskErrors {
		fmt.Printf("   ❌ task %s failed: %v\n", task, err)
	}
	return nil
}

func runPatterns(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(cmd)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd, args[0])
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	patterns, err := engine.DetectPatterns(context.Background(), discovery.Input{
		Entities:      snap.Entities,
		Relationships: snap.Relationships,
	})
	if err != nil {
		return fmt.Errorf("pattern detection failed: %w", err)
	}

	fmt.Printf("🧩 Found %d patterns in snapshot %q\n\n", len(patterns), args[0])
	for _, p := range patterns {
		ids := make([]string, len(p.Entities))
		for i, e := range p.Entities {
			ids[i] = e.ID
		}
		sort.Strings(ids)
		fmt.Printf("   %-10s importance=%.2f  %s\n", p.Type, p.Importance, strings.Join(ids, ", "))
	}
	return nil
}

// inputFile is the YAML import format. Relationships reference entities
// by id.
type inputFile struct {
	Entities      []*model.Entity `yaml:"entities"`
	Relationships []struct {
		ID         string                 `yaml:"id"`
		SourceID   string                 `yaml:"source_id"`
		TargetID   string                 `yaml:"target_id"`
		Kind       model.RelationshipKind `yaml:"kind"`
		Direction  model.Direction        `yaml:"direction"`
		Strength   model.Strength         `yaml:"strength"`
		Confidence float64                `yaml:"confidence"`
		Evidence   []string               `yaml:"evidence"`
	} `yaml:"relationships"`
	Events []model.Event `yaml:"events"`
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input file: %w", err)
	}
	var in inputFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("parsing input file: %w", err)
	}

	byID := make(map[string]*model.Entity, len(in.Entities))
	for _, e := range in.Entities {
		byID[e.ID] = e
	}
	rels := make([]*model.Relationship, 0, len(in.Relationships))
	for _, r := range in.Relationships {
		src, ok := byID[r.SourceID]
		if !ok {
			return fmt.Errorf("relationship %s references unknown entity %s", r.ID, r.SourceID)
		}
		dst, ok := byID[r.TargetID]
		if !ok {
			return fmt.Errorf("relationship %s references unknown entity %s", r.ID, r.TargetID)
		}
		direction := r.Direction
		if direction == "" {
			direction = model.Unidirectional
		}
		strength := r.Strength
		if strength == "" {
			strength = model.Moderate
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		rels = append(rels, &model.Relationship{
			ID:         r.ID,
			Source:     src,
			Target:     dst,
			Kind:       r.Kind,
			Direction:  direction,
			Strength:   strength,
			Confidence: confidence,
			Evidence:   r.Evidence,
		})
	}

	store, err := snapshot.Open(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(name, in.Entities, rels, in.Events); err != nil {
		return err
	}
	fmt.Printf("✅ Imported snapshot %q: %d entities, %d relationships, %d events\n",
		name, len(in.Entities), len(rels), len(in.Events))
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := snapshot.Open(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No snapshots stored.")
		return nil
	}
	for _, m := range metas {
		fmt.Printf("   %-20s %s  entities=%d relationships=%d events=%d\n",
			m.Name, m.SavedAt.Format(time.RFC3339), m.EntityCount, m.RelationshipCount, m.EventCount)
	}
	return nil
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := snapshot.Open(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("🗑  Deleted snapshot %q\n", args[0])
	return nil
}

func pathString(path []*model.Entity) string {
	ids := make([]string, len(path))
	for i, e := range path {
		ids[i] = e.ID
	}
	return strings.Join(ids, " → ")
}
