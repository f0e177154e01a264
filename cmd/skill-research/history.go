// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/skill-research/internal/store"
	"github.com/pdiddy/skill-research/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and inspect saved research runs",
	Long: `History lists completed research runs from the local database.
Use "history show <id>" to replay a saved run's full output.`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the full saved output of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func openHistoryStore(cmd *cobra.Command) (*store.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	return store.NewStore(types.StoreConfig{DataDir: dataDir})
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.History(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No saved runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-5s  %-30s  %-10s  %-6s  %-5s  %-5s  %s\n",
		"ID", "Skill gap", "Language", "Conf", "Res", "Recs", "When")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 85))
	for _, r := range runs {
		gap := r.SkillGap
		if len(gap) > 30 {
			gap = gap[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-5d  %-30s  %-10s  %-6.2f  %-5d  %-5d  %s\n",
			r.ID, gap, r.Language, r.Confidence, r.Resources, r.Recommendations,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("run id must be numeric: %w", err)
	}

	st, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.LoadRun(context.Background(), id)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")
	return renderState(os.Stdout, state, format)
}

func init() {
	historyCmd.PersistentFlags().String("data-dir", "", "history database directory (default: data/)")
	historyCmd.Flags().Int("limit", 20, "maximum runs to list")
	historyShowCmd.Flags().String("output", "table", "output format: table, yaml, or json")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
