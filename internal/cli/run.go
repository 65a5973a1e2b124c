package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forgeo/forgeoagent/pkg/orchestrator"
	"github.com/forgeo/forgeoagent/pkg/provider"
	"github.com/forgeo/forgeoagent/pkg/transcript"
)

var (
	runConversation string
	runAgent        string
	runSystem       string
	runModel        string
	runMaxRetries   int
	runStructured   bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Send a prompt through the orchestrator",
	Long: `Send a prompt to the configured provider. Keys rotate automatically on
transient failures; the exchange is committed to the conversation
transcript only when the call succeeds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConversation, "conversation", "", "conversation id (default: mint a new one)")
	runCmd.Flags().StringVar(&runAgent, "agent", "", "replay a saved agent's transcript as prior context")
	runCmd.Flags().StringVar(&runSystem, "system", "", "system instruction")
	runCmd.Flags().StringVar(&runModel, "model", "", "model override")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "retry budget override")
	runCmd.Flags().BoolVar(&runStructured, "json", false, "request schema-validated JSON output")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{startJanitor: true, startWatcher: true, serveMetrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompt := strings.Join(args, " ")

	conversationID := runConversation
	if conversationID == "" {
		conversationID = transcript.NewConversationID("chat")
	}

	model := a.cfg.Provider.Model
	if runModel != "" {
		model = runModel
	}
	maxRetries := a.cfg.Provider.MaxRetries
	if runMaxRetries > 0 {
		maxRetries = runMaxRetries
	}

	prior, err := a.transcripts.LoadPriorTurns(ctx, conversationID)
	if err != nil {
		return err
	}
	if runAgent != "" {
		agentTurns, err := a.catalog.LoadTurns(ctx, runAgent)
		if err != nil {
			return err
		}
		prior = append(agentTurns, prior...)
	}

	request := provider.Request{
		Model:       model,
		System:      runSystem,
		Prior:       toProviderMessages(prior),
		Prompt:      prompt,
		Temperature: a.cfg.Provider.Temperature,
		MaxTokens:   a.cfg.Provider.MaxTokens,
	}
	if runStructured {
		request.Schema = provider.DefaultSchema()
	}

	result, err := a.orchestrator.Execute(ctx, orchestrator.CallRequest{
		ConversationID: conversationID,
		Request:        request,
		MaxRetries:     maxRetries,
	})
	if err != nil {
		return err
	}

	if result.Parsed != nil {
		out, err := json.MarshalIndent(result.Parsed, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render response: %w", err)
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(result.Text)
	}

	fmt.Fprintf(os.Stderr, "conversation: %s (attempts: %d)\n", conversationID, result.Attempts)
	return nil
}

func toProviderMessages(turns []transcript.Turn) []provider.Message {
	messages := make([]provider.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, provider.Message{Role: turn.Role, Text: turn.Text})
	}
	return messages
}
