package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/errs"
	"github.com/convoindex/convoindex/internal/export"
)

var (
	exportFormat    string
	exportOutput    string
	exportEncryptTo string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export one conversation to jsonl, markdown, yaml, or json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseConversationID(args[0])
		if err != nil {
			return err
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return errs.New(errs.KindUsage, "unsupported export format", err)
		}

		ctx := cmd.Context()
		st, idx, err := openStoreAndIndex(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		defer idx.Close()

		conv, agentSlug, _, err := st.GetConversation(ctx, id)
		if err != nil {
			return mapConversationError(err)
		}
		messages, err := st.GetMessages(ctx, id)
		if err != nil {
			return err
		}

		outPath := exportOutput
		if outPath == "" {
			outPath = fmt.Sprintf("conversation-%d.%s", id, exporter.Extension())
		}
		f, err := os.Create(outPath)
		if err != nil {
			return errs.New(errs.KindIOWrite, "failed to create output file", err)
		}
		defer f.Close()

		doc := export.Conversation{Conversation: conv, Messages: messages, AgentSlug: agentSlug}

		if exportEncryptTo == "" {
			if err := exporter.Export(doc, f); err != nil {
				return fmt.Errorf("export: %w", err)
			}
		} else {
			enc, err := export.EncryptTo(f, exportEncryptTo)
			if err != nil {
				return errs.New(errs.KindUsage, "invalid --encrypt-to recipient", err)
			}
			if err := exporter.Export(doc, enc); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := enc.Close(); err != nil {
				return fmt.Errorf("flush encrypted output: %w", err)
			}
		}

		fmt.Printf("wrote %s\n", outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Export format: jsonl|md|yaml|json")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Output file path (default: conversation-<id>.<ext>)")
	exportCmd.Flags().StringVar(&exportEncryptTo, "encrypt-to", "", "age recipient (age1...) to encrypt the output for")
}
