package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hive/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and maintain the vector store",
}

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts per namespace",
	RunE:  runStoreStats,
}

var storePurgeCmd = &cobra.Command{
	Use:   "purge <namespace>",
	Short: "Delete every document of a namespace",
	Long:  `Deletes one namespace of the configured collection. Use "" for the shared namespace.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStorePurge,
}

func init() {
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storePurgeCmd)
}

func openStore() (*store.VectorStore, error) {
	return store.NewVectorStore(inWorkspace(cfg.VectorStore.Path), cfg.VectorStore.Collection)
}

func runStoreStats(cmd *cobra.Command, args []string) error {
	vs, err := openStore()
	if err != nil {
		return err
	}
	defer vs.Close()

	stats, err := vs.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(stats) == 0 {
		fmt.Fprintf(out, "Collection %q is empty\n", vs.Collection())
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tDOCUMENTS\tEMBEDDED")
	for _, st := range stats {
		name := st.Namespace
		if name == store.DefaultNamespace {
			name = "(default)"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, st.Documents, st.Embedded)
	}
	return w.Flush()
}

func runStorePurge(cmd *cobra.Command, args []string) error {
	vs, err := openStore()
	if err != nil {
		return err
	}
	defer vs.Close()

	n, err := vs.DeleteNamespace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d documents from %q\n", n, args[0])
	return nil
}
