package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/model"
	"github.com/convoindex/convoindex/internal/store"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	toolMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Bold(true).
				Padding(0, 1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Aliases: []string{"view"},
	Short:   "Render one conversation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseConversationID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, idx, err := openStoreAndIndex(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()

		conv, agentSlug, workspacePath, err := st.GetConversation(ctx, id)
		if err != nil {
			return mapConversationError(err)
		}
		messages, err := st.GetMessages(ctx, id)
		if err != nil {
			return err
		}

		displaySessionHeader(conv, agentSlug, workspacePath, len(messages))
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return fmt.Errorf("build markdown renderer: %w", err)
		}
		for i, m := range messages {
			displayMessage(renderer, i+1, m, len(messages))
		}
		return nil
	},
}

func parseConversationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.New(errs.KindUsage, "conversation id must be an integer", err)
	}
	return id, nil
}

func mapConversationError(err error) error {
	if errors.Is(err, store.ErrConversationNotFound) {
		return errs.New(errs.KindNotFound, "conversation not found", err)
	}
	return err
}

func displaySessionHeader(conv model.Conversation, agentSlug, workspacePath string, messageCount int) {
	title := conv.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Println(sessionHeaderStyle.Render(fmt.Sprintf("%s [%s]", title, agentSlug)))

	metaParts := []string{
		fmt.Sprintf("Created: %s", conv.CreatedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("Messages: %d", messageCount),
	}
	if workspacePath != "" {
		metaParts = append(metaParts, fmt.Sprintf("Workspace: %s", workspacePath))
	}
	fmt.Println(sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Println()
}

func displayMessage(renderer *glamour.TermRenderer, index int, msg model.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string
	switch msg.Role {
	case model.RoleUser:
		actorStyle, actorLabel = userMessageStyle, "User"
	case model.RoleAssistant:
		actorStyle, actorLabel = assistantMessageStyle, "Assistant"
	default:
		actorStyle, actorLabel = toolMessageStyle, string(msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !msg.CreatedAt.IsZero() {
		header += " " + timestampStyle.Render(msg.CreatedAt.Format("15:04:05"))
	}
	fmt.Println(header)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		fmt.Println(timestampStyle.Render("(empty message)"))
		fmt.Println()
		return
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		fmt.Println(content)
	} else {
		fmt.Print(rendered)
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(showCmd)
}
