package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/store"
)

var (
	timelineAgent     string
	timelineWorkspace string
	timelineSince     string
	timelineUntil     string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Chronological conversation listing across every agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, idx, err := openStoreAndIndex(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()

		filter := store.ListFilter{Agent: timelineAgent, Workspace: timelineWorkspace, Limit: 0}
		if timelineSince != "" {
			t, err := time.Parse(time.RFC3339, timelineSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			filter.Since = t
		}
		if timelineUntil != "" {
			t, err := time.Parse(time.RFC3339, timelineUntil)
			if err != nil {
				return fmt.Errorf("invalid --until: %w", err)
			}
			filter.Until = t
		}

		summaries, err := st.ListConversations(ctx, filter)
		if err != nil {
			return err
		}
		// ListConversations already orders by updated_at DESC; the
		// timeline view wants oldest-first chronological order.
		for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
			summaries[i], summaries[j] = summaries[j], summaries[i]
		}
		displayConversations(summaries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().StringVar(&timelineAgent, "agent", "", "Filter by agent slug")
	timelineCmd.Flags().StringVar(&timelineWorkspace, "workspace", "", "Filter by workspace path")
	timelineCmd.Flags().StringVar(&timelineSince, "since", "", "Only conversations updated at or after this RFC3339 timestamp")
	timelineCmd.Flags().StringVar(&timelineUntil, "until", "", "Only conversations updated at or before this RFC3339 timestamp")
}
