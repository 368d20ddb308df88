package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/brandtiboy/prototype-test/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Browse locally stored session results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runResultsList,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a stored session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsShow,
}

var resultsExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write a stored session to its pt-session-<id>.json artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsExport,
}

var (
	resultsDBPath  string
	resultsProject string
	exportDir      string
)

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".prototest", "results.db")

	resultsCmd.AddCommand(resultsListCmd, resultsShowCmd, resultsExportCmd)
	resultsCmd.PersistentFlags().StringVar(&resultsDBPath, "db", defaultDB, "Path to the results database")
	resultsListCmd.Flags().StringVar(&resultsProject, "project", "", "Filter by project name")
	resultsExportCmd.Flags().StringVar(&exportDir, "out", ".", "Directory to write the artifact into")
}

func openResultsStore() (*store.Store, error) {
	if _, err := os.Stat(resultsDBPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no results database at %s (run a session first?)", resultsDBPath)
	}
	return store.New(resultsDBPath)
}

func runResultsList(cmd *cobra.Command, args []string) error {
	s, err := openResultsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sessions, err := s.ListSessions(resultsProject)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tPROJECT\tTESTER\tSUBMITTED\tDURATION\tRATING\tCOMPLETED")
	for _, sum := range sessions {
		tester := sum.TesterName
		if tester == "" {
			tester = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/5\t%d/%d\n",
			sum.SessionID, sum.ProjectName, tester,
			sum.SubmittedAt.Local().Format("2006-01-02 15:04"),
			sum.SessionDurationFmt, sum.OverallRating,
			sum.CompletedTasks, sum.TotalTasks)
	}
	return w.Flush()
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	s, err := openResultsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sub, err := s.GetSession(args[0])
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("session %s not found", args[0])
	}

	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	s, err := openResultsStore()
	if err != nil {
		return err
	}
	defer s.Close()

	sub, err := s.GetSession(args[0])
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("session %s not found", args[0])
	}

	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(exportDir, sub.ArtifactName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
