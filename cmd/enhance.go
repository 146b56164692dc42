package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refill-spot/enrich-cli/internal/model"
	"github.com/refill-spot/enrich-cli/internal/price"
)

var (
	enhanceInput    string
	enhanceOutput   string
	enhanceRules    string
	enhanceSave     bool
	enhanceShowDist bool
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enrich a batch of scraped store records",
	Long:  "Reads a JSON array of raw store records, geocodes, normalizes prices, maps categories, deduplicates, and writes the enhanced batch as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mode := "enhance"
		if enhanceSave {
			mode = "migrate"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		records, err := readRecords(enhanceInput)
		if err != nil {
			return err
		}

		enhancer, err := buildEnhancer(enhanceRules)
		if err != nil {
			return err
		}

		enhanced, stats := enhancer.Enhance(ctx, records)

		if err := writeRecords(enhanceOutput, enhanced); err != nil {
			return err
		}

		if enhanceSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			saved, err := st.UpsertStores(ctx, enhanced)
			if err != nil {
				return err
			}
			if err := st.SaveRun(ctx, stats); err != nil {
				return err
			}
			zap.L().Info("enhance: batch persisted",
				zap.Int("saved", saved),
				zap.Int("skipped_no_place_id", len(enhanced)-saved))
		}

		fmt.Fprintln(os.Stderr, stats.Summary())
		if enhanceShowDist {
			dist := price.Distribute(enhanced)
			distJSON, err := json.MarshalIndent(dist, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal price distribution")
			}
			fmt.Fprintln(os.Stderr, string(distJSON))
		}
		return nil
	},
}

// readRecords loads a JSON array of raw records from a file, or stdin when
// path is "-" or empty.
func readRecords(path string) ([]*model.StoreRecord, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open input %s", path)
		}
		defer f.Close()
		r = f
	}

	var records []*model.StoreRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, eris.Wrap(err, "decode input records")
	}
	return records, nil
}

// writeRecords writes the enhanced batch as indented JSON to a file, or
// stdout when path is "-" or empty.
func writeRecords(path string, records []*model.StoreRecord) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create output %s", path)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(records), "encode output records")
}

func init() {
	enhanceCmd.Flags().StringVar(&enhanceInput, "input", "-", "input JSON file (- for stdin)")
	enhanceCmd.Flags().StringVar(&enhanceOutput, "output", "-", "output JSON file (- for stdout)")
	enhanceCmd.Flags().StringVar(&enhanceRules, "rules", "", "category rules YAML (default built-in table)")
	enhanceCmd.Flags().BoolVar(&enhanceSave, "save", false, "persist the enhanced batch to the configured store")
	enhanceCmd.Flags().BoolVar(&enhanceShowDist, "price-distribution", false, "print price distribution statistics")
	rootCmd.AddCommand(enhanceCmd)
}
