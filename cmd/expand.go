package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/model"
	"github.com/convoindex/convoindex/internal/robot"
)

var expandContext int

var expandCmd = &cobra.Command{
	Use:   "expand <id> <msg_idx>",
	Short: "Show a window of messages around one message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, conv, agentSlug, err := loadExpandWindow(cmd, args)
		if err != nil {
			return err
		}
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
		if err != nil {
			return fmt.Errorf("build markdown renderer: %w", err)
		}
		displaySessionHeader(conv, agentSlug, "", len(window))
		for i, m := range window {
			displayMessage(renderer, i+1, m, len(window))
		}
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <id> <msg_idx>",
	Short: "Show a window of messages around one message as a robot envelope",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, conv, agentSlug, err := loadExpandWindow(cmd, args)
		if err != nil {
			return err
		}
		hits := make([]robot.Hit, 0, len(window))
		for _, m := range window {
			hits = append(hits, robot.Hit{
				SourcePath: conv.SourcePath,
				LineNumber: m.MsgIdx,
				Agent:      agentSlug,
				Title:      conv.Title,
				Content:    m.Content,
			})
		}
		env := robot.Envelope{Hits: hits}
		keys, _ := robot.ResolveFields("all")
		return robot.WriteEnvelope(os.Stdout, env, keys)
	},
}

// loadExpandWindow resolves <id> <msg_idx> and returns the +/- --context
// window of messages around msg_idx, along with the parent conversation.
func loadExpandWindow(cmd *cobra.Command, args []string) ([]model.Message, model.Conversation, string, error) {
	id, err := parseConversationID(args[0])
	if err != nil {
		return nil, model.Conversation{}, "", err
	}
	msgIdx, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, model.Conversation{}, "", errs.New(errs.KindUsage, "msg_idx must be an integer", err)
	}

	ctx := cmd.Context()
	st, idx, err := openStoreAndIndex(ctx)
	if err != nil {
		return nil, model.Conversation{}, "", err
	}
	defer st.Close()
	defer idx.Close()

	conv, agentSlug, _, err := st.GetConversation(ctx, id)
	if err != nil {
		return nil, model.Conversation{}, "", mapConversationError(err)
	}
	all, err := st.GetMessages(ctx, id)
	if err != nil {
		return nil, model.Conversation{}, "", err
	}

	lo := msgIdx - expandContext
	hi := msgIdx + expandContext
	var window []model.Message
	for _, m := range all {
		if m.MsgIdx >= lo && m.MsgIdx <= hi {
			window = append(window, m)
		}
	}
	if len(window) == 0 {
		return nil, model.Conversation{}, "", errs.New(errs.KindNotFound, "no message at that index", nil)
	}
	return window, conv, agentSlug, nil
}

func init() {
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(contextCmd)
	expandCmd.Flags().IntVar(&expandContext, "context", 3, "Number of messages of context on each side")
	contextCmd.Flags().IntVar(&expandContext, "context", 3, "Number of messages of context on each side")
}
