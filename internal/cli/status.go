package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show key pool and storage status",
	Long:  `Show the configured key pool, transcript store and saved-agent counts.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "machine-readable output")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	poolStatus := a.pool.Status()

	conversations, err := a.transcripts.List()
	if err != nil {
		return err
	}
	agents, err := a.catalog.List(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSON {
		out, err := json.MarshalIndent(map[string]interface{}{
			"provider":      a.cfg.Provider.Name,
			"model":         a.cfg.Provider.Model,
			"pool":          poolStatus,
			"conversations": len(conversations),
			"agents":        len(agents),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Provider: %s (%s)\n", a.cfg.Provider.Name, a.cfg.Provider.Model)
	fmt.Printf("Keys: %d total, %d active, %d failed\n",
		poolStatus.TotalKeys, poolStatus.ActiveKeys, poolStatus.FailedKeys)
	fmt.Printf("Current key: %s\n", poolStatus.CurrentKeyPrefix)
	fmt.Printf("Last reset: %s\n", poolStatus.LastResetDate)
	fmt.Printf("Conversations: %d\n", len(conversations))
	fmt.Printf("Saved agents: %d\n", len(agents))
	return nil
}
