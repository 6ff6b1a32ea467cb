package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/doctrinekb/internal/core/knowledge"
	"github.com/markdave123-py/doctrinekb/internal/services"
)

var (
	askCountry     string
	askWarfareType string
	askSearch      bool
	askLimit       int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the doctrine analyst",
	Long: `Sends a question to the knowledge base agent. Without a question an
interactive session starts; type "exit" or press Ctrl-D to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askCountry, "country", services.AllFilter, "focus on one country")
	askCmd.Flags().StringVar(&askWarfareType, "warfare-type", services.AllFilter, "focus on one warfare type")
	askCmd.Flags().BoolVar(&askSearch, "search", false, "list matching chunks instead of asking the agent")
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 5, "maximum search results")
	rootCmd.AddCommand(askCmd)
}

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	answerColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
	metaColor   = color.New(color.FgYellow)
)

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadKBConfig()
	if err != nil {
		return err
	}
	chat := services.NewChatService(knowledge.NewMindsDBClient(cfg, logger))
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		return answer(cmd.Context(), out, chat, args[0])
	}

	metaColor.Fprintf(out, "Country: %s  Warfare: %s\n", askCountry, askWarfareType)
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		promptColor.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := answer(cmd.Context(), out, chat, q); err != nil {
			errorColor.Fprintf(out, "error: %v\n", err)
		}
	}
}

func answer(ctx context.Context, out io.Writer, chat *services.ChatService, question string) error {
	if askSearch {
		hits, err := chat.Search(ctx, question, askCountry, askLimit)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		for i, h := range hits {
			metaColor.Fprintf(out, "[%d] %s (%.2f) %s %s\n", i+1, h.ID, h.Relevance, h.Country, h.WarfareType)
			fmt.Fprintf(out, "    %s\n", h.Content)
		}
		return nil
	}

	text, err := chat.Ask(ctx, question, askCountry, askWarfareType)
	if err != nil {
		return err
	}
	answerColor.Fprintln(out, text)
	return nil
}
