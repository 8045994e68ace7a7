package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog directly, without the conversation",
	Long: `Search the track catalog by embedding similarity.

The query is embedded and matched against every catalog caption; results
are ranked by cosine similarity. Use 'chat' for the conversational flow.

Examples:
  musicsearch search "slow acoustic guitar ballad"
  musicsearch search "energetic techno with heavy bass" -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	s, err := getSearcher()
	if err != nil {
		return err
	}

	results, err := s.FindSimilar(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, r.TrackID, r.Score)
		caption := r.Caption
		if len(caption) > 100 {
			caption = caption[:100] + "..."
		}
		fmt.Printf("   %s\n\n", caption)
	}

	return nil
}
