package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/guard"
	"github.com/rcliao/ownai-workshop/internal/model"
)

func init() {
	knowledgeCmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"kb"},
		Short:   "Manage knowledge bases",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		Run:   runKnowledgeList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a knowledge base",
		Run:   runKnowledgeCreate,
	}
	create.Flags().String("name", "", "Name (required)")
	create.Flags().String("embeddings", "huggingface", "Embeddings type")
	create.Flags().Int("chunk-size", 500, "Characters per document chunk")
	create.MarkFlagRequired("name")

	update := &cobra.Command{
		Use:   "update",
		Short: "Rename a knowledge base or change its chunk size",
		Run:   runKnowledgeUpdate,
	}
	update.Flags().Int("id", 0, "Knowledge id (required)")
	update.Flags().String("name", "", "New name")
	update.Flags().Int("chunk-size", 0, "New chunk size")
	update.MarkFlagRequired("id")

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Delete a knowledge base and its documents",
		Run:   runKnowledgeRm,
	}
	rm.Flags().Int("id", 0, "Knowledge id (required)")
	rm.MarkFlagRequired("id")

	knowledgeCmd.AddCommand(list, create, update, rm)
	RootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeList(cmd *cobra.Command, args []string) {
	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Knowledge.FetchAll(cmd.Context()); err != nil {
		exitErr("list knowledge", err)
	}
	items := e.ws.Knowledge.Items()

	if textFormat() {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMBEDDINGS\tCHUNK SIZE")
		for _, k := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", k.ID, k.Name, k.Embeddings, k.ChunkSize)
		}
		tw.Flush()
		return
	}
	printJSON(cmd, items)
}

func runKnowledgeCreate(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	embeddings, _ := cmd.Flags().GetString("embeddings")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")

	if !model.ValidEmbeddings[embeddings] {
		exitErr("create knowledge", fmt.Errorf("unknown embeddings type %q", embeddings))
	}
	if chunkSize <= 0 {
		exitErr("create knowledge", fmt.Errorf("chunk size must be positive"))
	}

	e := mustOpenEnv(cmd)
	defer e.Close()

	k, err := e.ws.Knowledge.Create(cmd.Context(), model.Knowledge{
		Name:       name,
		Embeddings: embeddings,
		ChunkSize:  chunkSize,
	})
	if err != nil {
		exitErr("create knowledge", err)
	}
	printJSON(cmd, k)
}

func runKnowledgeUpdate(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt("id")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Knowledge.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch knowledge", err)
	}
	k, ok := e.ws.Knowledge.Find(id)
	if !ok {
		exitErr("update knowledge", fmt.Errorf("no knowledge with id %d", id))
	}
	if cmd.Flags().Changed("name") {
		k.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("chunk-size") {
		k.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	}

	updated, found, err := e.ws.Knowledge.Update(cmd.Context(), k)
	if err != nil {
		exitErr("update knowledge", err)
	}
	if !found {
		e.log.Warn().Int("id", id).Msg("updated knowledge was not in the local list")
	}
	printJSON(cmd, updated)
}

func runKnowledgeRm(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt("id")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := guard.RequireFullAccess(e.cfg.DemoMode); err != nil {
		exitErr("rm knowledge", err)
	}
	if err := e.ws.Knowledge.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch knowledge", err)
	}
	removed, err := e.ws.Knowledge.Delete(cmd.Context(), id)
	if err != nil {
		exitErr("rm knowledge", err)
	}
	e.ws.Documents.Dispose(id)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d,"removed":%t}`+"\n", id, removed)
}
