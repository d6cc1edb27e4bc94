package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/aifile"
	"github.com/rcliao/ownai-workshop/internal/guard"
	"github.com/rcliao/ownai-workshop/internal/model"
)

func init() {
	aiCmd := &cobra.Command{
		Use:   "ai",
		Short: "Manage AIs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List AIs",
		Run:   runAiList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an AI from a chain definition",
		Long:  "Create an AI. Input keys are discovered from the chain unless --input-keys is given.",
		Run:   runAiCreate,
	}
	create.Flags().String("name", "", "Name (required)")
	create.Flags().String("chain", "", "Path to the chain JSON (required)")
	create.Flags().String("input-keys", "", "Comma-separated input keys")
	create.Flags().String("greeting", "", "Greeting shown when a chat starts")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("chain")

	update := &cobra.Command{
		Use:   "update",
		Short: "Update an AI",
		Run:   runAiUpdate,
	}
	update.Flags().Int("id", 0, "AI id (required)")
	update.Flags().String("name", "", "New name")
	update.Flags().String("chain", "", "Path to a new chain JSON")
	update.Flags().String("greeting", "", "New greeting")
	update.MarkFlagRequired("id")

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Delete an AI",
		Run:   runAiRm,
	}
	rm.Flags().Int("id", 0, "AI id (required)")
	rm.MarkFlagRequired("id")

	imp := &cobra.Command{
		Use:   "import <aifile>",
		Short: "Create an AI from an Aifile",
		Args:  cobra.ExactArgs(1),
		Run:   runAiImport,
	}

	exp := &cobra.Command{
		Use:   "export",
		Short: "Export an AI as an Aifile",
		Run:   runAiExport,
	}
	exp.Flags().Int("id", 0, "AI id (required)")
	exp.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	exp.MarkFlagRequired("id")

	aiCmd.AddCommand(list, create, update, rm, imp, exp)
	RootCmd.AddCommand(aiCmd)
}

func runAiList(cmd *cobra.Command, args []string) {
	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Ais.FetchAll(cmd.Context()); err != nil {
		exitErr("list ais", err)
	}
	ais := e.ws.Ais.Items()

	if textFormat() {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tINPUTS")
		for _, ai := range ais {
			labels := make([]string, 0, len(ai.InputKeys))
			for _, k := range ai.InputKeys {
				labels = append(labels, ai.Label(k))
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", ai.ID, ai.Name, strings.Join(labels, ", "))
		}
		tw.Flush()
		return
	}
	printJSON(cmd, ais)
}

func readChain(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chain map[string]any
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return chain, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runAiCreate(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	chainPath, _ := cmd.Flags().GetString("chain")
	keys, _ := cmd.Flags().GetString("input-keys")
	greeting, _ := cmd.Flags().GetString("greeting")

	chain, err := readChain(chainPath)
	if err != nil {
		exitErr("read chain", err)
	}
	inputKeys := splitList(keys)
	if len(inputKeys) == 0 {
		inputKeys = aifile.InputKeys(chain)
	}

	e := mustOpenEnv(cmd)
	defer e.Close()

	ai, err := e.ws.Ais.Create(cmd.Context(), model.Ai{
		Name:      name,
		InputKeys: inputKeys,
		Chain:     chain,
		Greeting:  greeting,
	})
	if err != nil {
		exitErr("create ai", err)
	}
	printJSON(cmd, ai)
}

func runAiUpdate(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt("id")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Ais.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch ais", err)
	}
	ai, ok := e.ws.Ais.Find(id)
	if !ok {
		exitErr("update ai", fmt.Errorf("no AI with id %d", id))
	}

	if cmd.Flags().Changed("name") {
		ai.Name, _ = cmd.Flags().GetString("name")
	}
	if cmd.Flags().Changed("greeting") {
		ai.Greeting, _ = cmd.Flags().GetString("greeting")
	}
	if cmd.Flags().Changed("chain") {
		path, _ := cmd.Flags().GetString("chain")
		chain, err := readChain(path)
		if err != nil {
			exitErr("read chain", err)
		}
		ai.Chain = chain
		ai.InputKeys = aifile.InputKeys(chain)
	}

	updated, found, err := e.ws.Ais.Update(cmd.Context(), ai)
	if err != nil {
		exitErr("update ai", err)
	}
	if !found {
		e.log.Warn().Int("id", id).Msg("updated AI was not in the local list")
	}
	printJSON(cmd, updated)
}

func runAiRm(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt("id")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := guard.RequireFullAccess(e.cfg.DemoMode); err != nil {
		exitErr("rm ai", err)
	}
	if err := e.ws.Ais.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch ais", err)
	}
	removed, err := e.ws.Ais.Delete(cmd.Context(), id)
	if err != nil {
		exitErr("rm ai", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d,"removed":%t}`+"\n", id, removed)
}

func runAiImport(cmd *cobra.Command, args []string) {
	f, err := aifile.Read(args[0])
	if err != nil {
		exitErr("import", err)
	}

	e := mustOpenEnv(cmd)
	defer e.Close()

	ai, err := e.ws.Ais.Create(cmd.Context(), f.ToAi())
	if err != nil {
		exitErr("create ai", err)
	}
	printJSON(cmd, ai)
}

func runAiExport(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetInt("id")
	output, _ := cmd.Flags().GetString("output")

	e := mustOpenEnv(cmd)
	defer e.Close()

	if err := e.ws.Ais.FetchAll(cmd.Context()); err != nil {
		exitErr("fetch ais", err)
	}
	ai, ok := e.ws.Ais.Find(id)
	if !ok {
		exitErr("export", fmt.Errorf("no AI with id %d", id))
	}

	data, err := aifile.Marshal(aifile.FromAi(ai))
	if err != nil {
		exitErr("export", err)
	}
	if output == "" {
		cmd.OutOrStdout().Write(data)
		return
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		exitErr("write aifile", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d,"path":%q}`+"\n", id, output)
}
