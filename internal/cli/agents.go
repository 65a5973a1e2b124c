package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeo/forgeoagent/pkg/catalog"
)

var (
	agentsSaveDescription string
	agentsSaveModel       string
	agentsSaveOverwrite   bool
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage the saved-agent catalog",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		agents, err := a.catalog.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("No saved agents.")
			return nil
		}
		for _, agent := range agents {
			fmt.Printf("%s\t%s\t%d turns\t%s\n",
				agent.Name, agent.Model, agent.TurnCount, agent.SavedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var agentsSaveCmd = &cobra.Command{
	Use:   "save <name> <conversation-id>",
	Short: "Snapshot a conversation as a named agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		model := agentsSaveModel
		if model == "" {
			model = a.cfg.Provider.Model
		}

		info, err := a.catalog.Save(cmd.Context(), catalog.SaveRequest{
			Name:           args[0],
			ConversationID: args[1],
			Model:          model,
			Description:    agentsSaveDescription,
			Overwrite:      agentsSaveOverwrite,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Saved agent %s (%d turns)\n", info.Name, info.TurnCount)
		return nil
	},
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a saved agent's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.catalog.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var agentsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.catalog.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted agent %s\n", args[0])
		return nil
	},
}

func init() {
	agentsSaveCmd.Flags().StringVar(&agentsSaveDescription, "description", "", "free-form description")
	agentsSaveCmd.Flags().StringVar(&agentsSaveModel, "model", "", "model the agent was built with")
	agentsSaveCmd.Flags().BoolVar(&agentsSaveOverwrite, "overwrite", false, "replace an existing agent")

	agentsCmd.AddCommand(agentsListCmd, agentsSaveCmd, agentsShowCmd, agentsDeleteCmd)
	rootCmd.AddCommand(agentsCmd)
}
