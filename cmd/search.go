package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/query"
	"github.com/convoindex/convoindex/internal/robot"
)

var (
	searchAgent            string
	searchWorkspace        string
	searchSince            string
	searchUntil            string
	searchRank             string
	searchLimit            int
	searchOffset           int
	searchCursor           string
	searchRobot            bool
	searchFields           string
	searchMaxContentLength int
	searchMaxTokens        int
	searchStream           bool
	searchNoCache          bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed conversations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, st, idx, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()
		defer engine.Close()

		filters, err := buildFilters()
		if err != nil {
			return err
		}
		opts := query.Options{
			Rank:           query.RankMode(searchRank),
			FuzzyThreshold: cfg.FuzzyThreshold,
			NoCache:        searchNoCache,
		}
		paging := query.Paging{Limit: searchLimit, Offset: searchOffset, Cursor: searchCursor}

		hits, err := engine.Search(ctx, args[0], filters, paging, opts)
		if err != nil {
			return err
		}

		if searchRobot {
			return printRobotHits(hits)
		}
		printHitsTable(hits)
		return nil
	},
}

func buildFilters() (query.Filters, error) {
	var f query.Filters
	f.Agent = searchAgent
	f.Workspace = searchWorkspace
	if searchSince != "" {
		t, err := time.Parse(time.RFC3339, searchSince)
		if err != nil {
			return f, errs.New(errs.KindUsage, "invalid --since, want RFC3339", err)
		}
		f.CreatedFrom = t
	}
	if searchUntil != "" {
		t, err := time.Parse(time.RFC3339, searchUntil)
		if err != nil {
			return f, errs.New(errs.KindUsage, "invalid --until, want RFC3339", err)
		}
		f.CreatedTo = t
	}
	return f, nil
}

func printRobotHits(hits query.Hits) error {
	keys, err := robot.ResolveFields(searchFields)
	if err != nil {
		return errs.New(errs.KindUsage, "invalid --fields", err)
	}
	env := robot.FromQueryHits(hits, "")
	for i, h := range env.Hits {
		env.Hits[i] = robot.ApplyTruncation(h, searchMaxContentLength, searchMaxTokens)
	}
	if searchStream {
		return robot.WriteStream(os.Stdout, env, keys)
	}
	return robot.WriteEnvelope(os.Stdout, env, keys)
}

func printHitsTable(hits query.Hits) {
	if len(hits.Items) == 0 {
		fmt.Println(headerStyle.Render("No matches"))
		return
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%d match(es)", len(hits.Items))))
	if hits.WildcardFallback {
		fmt.Println(idStyle.Render("(fell back to a fuzzy match)"))
	}
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignLeft)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Agent")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Score")+"\t"+titleStyle.Render("Snippet"))
	for _, h := range hits.Items {
		snippet := h.Snippet
		if len(snippet) > 80 {
			snippet = snippet[:77] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			workspaceStyle.Render(h.Agent), h.Title, countStyle.Render(fmt.Sprintf("%.2f", h.Score)), snippet)
	}
	_ = w.Flush()

	if hits.NextCursor != "" {
		fmt.Println()
		fmt.Println(idStyle.Render("next page: --cursor " + hits.NextCursor))
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchAgent, "agent", "", "Filter by agent slug")
	searchCmd.Flags().StringVar(&searchWorkspace, "workspace", "", "Filter by workspace path")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "Only messages created at or after this RFC3339 timestamp")
	searchCmd.Flags().StringVar(&searchUntil, "until", "", "Only messages created at or before this RFC3339 timestamp")
	searchCmd.Flags().StringVar(&searchRank, "rank", string(query.RankBalanced), "Ranking mode: recent|balanced|relevance|quality")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum hits to return")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Offset into the result set")
	searchCmd.Flags().StringVar(&searchCursor, "cursor", "", "Opaque forward-paging cursor from a prior result's _meta.next_cursor")
	searchCmd.Flags().BoolVar(&searchRobot, "robot", false, "Emit the flat-JSON robot envelope instead of a table")
	searchCmd.Flags().StringVar(&searchFields, "fields", "minimal", "Robot mode field selection: minimal|summary|all|<csv field list>")
	searchCmd.Flags().IntVar(&searchMaxContentLength, "max-content-length", 0, "Robot mode: truncate content to this many runes (0 = no limit)")
	searchCmd.Flags().IntVar(&searchMaxTokens, "max-tokens", 0, "Robot mode: truncate content to this many whitespace tokens (0 = no limit)")
	searchCmd.Flags().BoolVar(&searchStream, "stream", false, "Robot mode: NDJSON, one _meta header line then one hit per line")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "Bypass the prefix cache for this query")
}
