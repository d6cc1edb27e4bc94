package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/chunker"
	"github.com/rcliao/ownai-workshop/internal/guard"
	"github.com/rcliao/ownai-workshop/internal/model"
)

func init() {
	docCmd := &cobra.Command{
		Use:   "doc",
		Short: "Browse, upload and delete knowledge documents",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List one page of documents",
		Run:   runDocList,
	}
	list.Flags().IntP("knowledge", "k", 0, "Knowledge id (required)")
	list.Flags().Int("page", 1, "Page number")
	list.MarkFlagRequired("knowledge")

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Delete a document",
		Run:   runDocRm,
	}
	rm.Flags().IntP("knowledge", "k", 0, "Knowledge id (required)")
	rm.Flags().Int("page", 1, "Page the document is listed on")
	rm.Flags().String("id", "", "Document id (required)")
	rm.MarkFlagRequired("knowledge")
	rm.MarkFlagRequired("id")

	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a .txt, .pdf or .docx file into a knowledge base",
		Args:  cobra.ExactArgs(1),
		Run:   runDocUpload,
	}
	upload.Flags().IntP("knowledge", "k", 0, "Knowledge id (required)")
	upload.Flags().Bool("dry-run", false, "Only preview how the file would be chunked")
	upload.MarkFlagRequired("knowledge")

	docCmd.AddCommand(list, rm, upload)
	RootCmd.AddCommand(docCmd)
}

type docPageOutput struct {
	Knowledge  int              `json:"knowledge"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
	Items      []model.Document `json:"items"`
}

func runDocList(cmd *cobra.Command, args []string) {
	kid, _ := cmd.Flags().GetInt("knowledge")
	page, _ := cmd.Flags().GetInt("page")

	e := mustOpenEnv(cmd)
	defer e.Close()

	docs := e.ws.Documents.Open(kid)
	if err := docs.GoToPage(cmd.Context(), page); err != nil {
		exitErr("list documents", err)
	}
	items := docs.CurrentDocuments()

	if textFormat() {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d documents)\n",
			docs.CurrentPage(), docs.TotalPages(), docs.TotalDocuments())
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCONTENT")
		for _, d := range items {
			fmt.Fprintf(tw, "%s\t%s\n", d.ID, preview(d.Content, 60))
		}
		tw.Flush()
		return
	}
	printJSON(cmd, docPageOutput{
		Knowledge:  kid,
		Page:       docs.CurrentPage(),
		TotalPages: docs.TotalPages(),
		Total:      docs.TotalDocuments(),
		Items:      items,
	})
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func runDocRm(cmd *cobra.Command, args []string) {
	kid, _ := cmd.Flags().GetInt("knowledge")
	page, _ := cmd.Flags().GetInt("page")
	id, _ := cmd.Flags().GetString("id")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := guard.RequireFullAccess(e.cfg.DemoMode); err != nil {
		exitErr("rm document", err)
	}
	docs := e.ws.Documents.Open(kid)
	if err := docs.GoToPage(cmd.Context(), page); err != nil {
		exitErr("fetch documents", err)
	}
	removed, err := docs.DeleteDocument(cmd.Context(), id)
	if err != nil {
		exitErr("rm document", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"knowledge":%d,"id":%q,"removed":%t}`+"\n", kid, id, removed)
}

func runDocUpload(cmd *cobra.Command, args []string) {
	kid, _ := cmd.Flags().GetInt("knowledge")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	path := args[0]

	if dryRun {
		previewUpload(cmd, kid, path)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		exitErr("open file", err)
	}
	defer f.Close()

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Documents.Open(kid).UploadDocument(cmd.Context(), path, f); err != nil {
		exitErr("upload", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"knowledge":%d,"file":%q}`+"\n", kid, path)
}

type chunkPreview struct {
	Knowledge int      `json:"knowledge"`
	File      string   `json:"file"`
	ChunkSize int      `json:"chunk_size"`
	Count     int      `json:"count"`
	Chunks    []string `json:"chunks"`
}

// previewUpload shows the chunks the backend would store for a file, using
// the knowledge base's chunk size.
func previewUpload(cmd *cobra.Command, kid int, path string) {
	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Knowledge.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch knowledge", err)
	}
	k, ok := e.ws.Knowledge.Find(kid)
	if !ok {
		exitErr("preview", fmt.Errorf("no knowledge with id %d", kid))
	}

	chunks, err := chunker.SplitFile(cmd.Context(), path, chunker.ForChunkSize(k.ChunkSize))
	if err != nil {
		exitErr("preview", err)
	}
	if textFormat() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks of up to %d characters\n", path, len(chunks), k.ChunkSize)
		for i, c := range chunks {
			fmt.Fprintf(cmd.OutOrStdout(), "--- %d ---\n%s\n", i+1, c)
		}
		return
	}
	printJSON(cmd, chunkPreview{
		Knowledge: kid,
		File:      path,
		ChunkSize: k.ChunkSize,
		Count:     len(chunks),
		Chunks:    chunks,
	})
}
