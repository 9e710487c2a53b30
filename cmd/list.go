package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/store"
)

var (
	listAgent     string
	listWorkspace string
	listSince     string
	listLimit     int
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workspaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, idx, err := openStoreAndIndex(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()

		filter := store.ListFilter{Agent: listAgent, Workspace: listWorkspace, Limit: listLimit}
		if listSince != "" {
			t, err := time.Parse(time.RFC3339, listSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			filter.Since = t
		}

		summaries, err := st.ListConversations(ctx, filter)
		if err != nil {
			return err
		}
		displayConversations(summaries)
		return nil
	},
}

func displayConversations(summaries []store.ConversationSummary) {
	if len(summaries) == 0 {
		fmt.Println(headerStyle.Render("No conversations found"))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(summaries))))
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignLeft)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Agent")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Workspace"))
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}

		ws := s.WorkspacePath
		if ws != "" {
			if parts := strings.Split(ws, "/"); len(parts) > 0 {
				ws = parts[len(parts)-1]
			}
			if len(ws) > 25 {
				ws = ws[:22] + "..."
			}
		} else {
			ws = "-"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			idStyle.Render(strconv.FormatInt(s.ID, 10)),
			workspaceStyle.Render(s.AgentSlug),
			title,
			countStyle.Render(strconv.Itoa(s.MessageCount)),
			dateStyle.Render(formatRelative(s.UpdatedAt)),
			workspaceStyle.Render(ws))
	}
	_ = w.Flush()

	fmt.Println()
	fmt.Println(idStyle.Render(fmt.Sprintf("Tip: use `convoindex show %d` to view a conversation", summaries[0].ID)))
}

// formatRelative renders a timestamp the way the teacher's list.go did:
// time-of-day for today, weekday for the last week, month/day beyond
// that, and a bare date past a year.
func formatRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	now := time.Now()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listAgent, "agent", "", "Filter by agent slug")
	listCmd.Flags().StringVar(&listWorkspace, "workspace", "", "Filter by workspace path")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only conversations updated at or after this RFC3339 timestamp")
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "Maximum conversations to list")
}
