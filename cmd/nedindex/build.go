package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrypster/nedindex/internal/engine"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		endpoint    string
		file        string
		indexDir    string
		category    string
		engineName  string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index every member of a category",
		Long: `Discover every entity of the category (directly typed or typed by a
direct subclass), aggregate its aliases and context terms and write one
document per entity to a persistent index.

The graph is read from --file when given, otherwise from the SPARQL
endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				cfg.Source.Endpoint = endpoint
				cfg.Source.File = ""
			}
			if flags.Changed("file") {
				cfg.Source.File = file
			}
			if flags.Changed("index-dir") {
				cfg.Index.Path = indexDir
			}
			if flags.Changed("category") {
				cfg.Source.Category = category
			}
			if flags.Changed("engine") {
				cfg.Index.Engine = engineName
			}
			if flags.Changed("concurrency") {
				cfg.Build.Concurrency = concurrency
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			src, err := engine.SourceFromConfig(cfg)
			if err != nil {
				return err
			}
			r, err := engine.BuildOnDisk(cmd.Context(), cfg, cfg.Index.Path, src)
			if err != nil {
				return err
			}
			defer r.Close()

			stats := r.BuildStats()
			fmt.Fprintf(a.out, "indexed %d of %d entities in %s (build %s)\n",
				stats.Documents, stats.Entities, stats.Duration.Round(time.Millisecond), stats.BuildID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&endpoint, "endpoint", "", "SPARQL endpoint URL (default from config)")
	f.StringVar(&file, "file", "", "Local RDF file (.rdf, .owl, .xml, .ttl, .nt)")
	f.StringVar(&indexDir, "index-dir", "", "Index directory (default from config)")
	f.StringVar(&category, "category", "", "Category IRI to index (default: YAGO wordnet_company)")
	f.StringVar(&engineName, "engine", "", "Index engine: sqlite or postgres")
	f.IntVar(&concurrency, "concurrency", 1, "Entities aggregated in parallel")
	cmd.MarkFlagsMutuallyExclusive("endpoint", "file")
	return cmd
}
