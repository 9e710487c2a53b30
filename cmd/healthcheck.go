package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/convoindex/convoindex/internal/connector"
	"github.com/convoindex/convoindex/internal/ftsindex"
	"github.com/convoindex/convoindex/internal/store"
)

var healthcheckVerbose bool

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Underline(true)
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check connector detection and index health",
	Long: `healthcheck verifies that convoindex can locate at least one
connector's storage and that an existing index, if any, is reachable and
on the current schema. Useful for debugging a fresh install or CI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("convoindex health check"))
		fmt.Println()

		ctx := cmd.Context()

		fmt.Println(infoStyle.Render("Step 1: Detecting connectors..."))
		present := 0
		for _, c := range connector.All() {
			res, err := c.Detect(ctx)
			switch {
			case err != nil:
				fmt.Println(warningStyle.Render(fmt.Sprintf("!  %s: detect error", c.Slug())), err)
			case res.Present:
				present++
				fmt.Println(successStyle.Render(fmt.Sprintf("OK %s", c.DisplayName())))
				if healthcheckVerbose {
					for _, root := range res.Roots {
						fmt.Printf("   root: %s\n", root)
					}
				}
			default:
				fmt.Println(warningStyle.Render(fmt.Sprintf("-  %s: not found", c.DisplayName())))
			}
		}
		fmt.Println()
		if present == 0 {
			fmt.Println(warningStyle.Render("no connector storage detected on this host"))
		}

		fmt.Println(infoStyle.Render("Step 2: Checking the relational store..."))
		if _, err := os.Stat(storePath()); os.IsNotExist(err) {
			fmt.Println(warningStyle.Render("-  no store.db found, run `convoindex index --full`"))
		} else {
			st, err := store.Open(ctx, storePath())
			if err != nil {
				fmt.Println(errorStyle.Render("FAIL failed to open store:"), err)
				os.Exit(1)
			}
			count, err := st.MessageCount(ctx)
			st.Close()
			if err != nil {
				fmt.Println(errorStyle.Render("FAIL failed to count messages:"), err)
			} else {
				fmt.Println(successStyle.Render(fmt.Sprintf("OK store reachable, %d message(s) indexed", count)))
			}
		}
		fmt.Println()

		fmt.Println(infoStyle.Render("Step 3: Checking the full-text index..."))
		idx, err := ftsindex.Open(cfg.DataDir)
		if err != nil {
			fmt.Println(errorStyle.Render("FAIL failed to open full-text index:"), err)
		} else {
			docCount, err := idx.DocCount()
			idx.Close()
			if err != nil {
				fmt.Println(errorStyle.Render("FAIL failed to count documents:"), err)
			} else {
				fmt.Println(successStyle.Render(fmt.Sprintf("OK index reachable, %d document(s), schema %s", docCount, ftsindex.SchemaHash)))
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "V", false, "Show detected connector roots")
}
