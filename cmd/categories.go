package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/refill-spot/enrich-cli/internal/category"
)

var (
	categoriesRules string
	categoriesYAML  bool
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category mapping rule table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rules := category.DefaultRules()
		if categoriesRules != "" {
			data, err := os.ReadFile(categoriesRules)
			if err != nil {
				return err
			}
			rules, err = category.ParseRules(data)
			if err != nil {
				return err
			}
		}
		// Validate before printing so a broken table fails loudly here
		// rather than mid-run.
		mapper, err := category.NewMapper(rules)
		if err != nil {
			return err
		}

		if categoriesYAML {
			out, err := yaml.Marshal(rules)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		}

		fmt.Printf("taxonomy: %v\n", mapper.Taxonomy())
		fmt.Printf("default:  %s\n", rules.Default)
		fmt.Printf("exclusions: %d patterns\n", len(rules.Exclusions))
		fmt.Printf("keywords (%d):\n", len(rules.Keywords))

		keywords := make([]string, 0, len(rules.Keywords))
		for kw := range rules.Keywords {
			keywords = append(keywords, kw)
		}
		sort.Strings(keywords)
		for _, kw := range keywords {
			fmt.Printf("  %-12s -> %v\n", kw, rules.Keywords[kw])
		}
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&categoriesRules, "rules", "", "category rules YAML (default built-in table)")
	categoriesCmd.Flags().BoolVar(&categoriesYAML, "yaml", false, "dump the full rule table as YAML")
	rootCmd.AddCommand(categoriesCmd)
}
