package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/nedindex/internal/engine"
	"github.com/scrypster/nedindex/pkg/types"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		indexDir string
		token    string
		text     string
		k        int
		scores   bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Look up candidate entities in an index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("index-dir") {
				cfg.Index.Path = indexDir
			}
			if !cmd.Flags().Changed("k") {
				k = cfg.Retrieval.DefaultLimit
			}
			if (token == "") == (text == "") {
				return errors.New("exactly one of --token or --context is required")
			}

			r, err := engine.OpenExisting(cmd.Context(), cfg, cfg.Index.Path)
			if err != nil {
				return err
			}
			defer r.Close()

			var hits []types.Candidate
			if token != "" {
				hits, err = r.CandidatesFromTokenScored(cmd.Context(), token, k)
			} else {
				hits, err = r.CandidatesFromContextScored(cmd.Context(), text, k)
			}
			if err != nil {
				return err
			}

			for _, h := range hits {
				if scores {
					fmt.Fprintf(a.out, "%.4f\t%s\n", h.Score, h.Name)
				} else {
					fmt.Fprintln(a.out, h.Name)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&indexDir, "index-dir", "", "Index directory (default from config)")
	f.StringVar(&token, "token", "", "Surface form to look up in entity aliases")
	f.StringVar(&text, "context", "", "Free-text passage to look up")
	f.IntVarP(&k, "k", "k", 10, "Maximum number of candidates")
	f.BoolVar(&scores, "scores", false, "Print relevance scores")
	return cmd
}
