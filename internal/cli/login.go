package cli

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/session"
)

func init() {
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long:  "Log in to the backend. The password is read from --password or the first line of stdin.",
		Run:   runLogin,
	}
	login.Flags().StringP("username", "u", "", "Username (required)")
	login.Flags().StringP("password", "p", "", "Password (default: read from stdin)")
	login.MarkFlagRequired("username")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Log out of the backend and forget the stored session",
		Run:   runLogout,
	}

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Run:   runSessions,
	}

	RootCmd.AddCommand(login, logout, sessions)
}

func runLogin(cmd *cobra.Command, args []string) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			exitErr("read password", fmt.Errorf("password is required (--password or stdin)"))
		}
		password = strings.TrimRight(line, "\r\n")
	}

	e := mustOpenEnv(cmd)
	defer e.Close()

	cookies, err := e.client.Login(cmd.Context(), username, password)
	if err != nil {
		exitErr("login", err)
	}

	sess, err := e.sessions.Save(cmd.Context(), session.SaveParams{
		BaseURL:  e.client.BaseURL(),
		Username: username,
		Cookies:  session.FromHTTP(cookies, time.Now()),
	})
	if err != nil {
		exitErr("save session", err)
	}

	if textFormat() {
		fmt.Fprintf(cmd.OutOrStdout(), "logged in to %s as %s\n", sess.BaseURL, sess.Username)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"base_url":%q,"username":%q,"session":%q}`+"\n",
		sess.BaseURL, sess.Username, sess.ID)
}

func runLogout(cmd *cobra.Command, args []string) {
	e := mustOpenEnv(cmd)
	defer e.Close()

	// The local session is forgotten even when the backend can't be reached.
	if err := e.client.Logout(cmd.Context()); err != nil {
		e.log.Warn().Err(err).Str("base_url", e.client.BaseURL()).Msg("backend logout failed")
	}
	if err := e.sessions.Delete(cmd.Context(), e.client.BaseURL()); err != nil {
		exitErr("logout", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"base_url":%q}`+"\n", e.client.BaseURL())
}

func runSessions(cmd *cobra.Command, args []string) {
	e := mustOpenEnv(cmd)
	defer e.Close()

	all, err := e.sessions.List(cmd.Context())
	if err != nil {
		exitErr("sessions", err)
	}

	if textFormat() {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BASE URL\tUSERNAME\tLOGGED IN")
		for _, s := range all {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.BaseURL, s.Username, s.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		tw.Flush()
		return
	}

	// Cookies stay out of the output.
	type entry struct {
		ID        string `json:"id"`
		BaseURL   string `json:"base_url"`
		Username  string `json:"username"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entry, 0, len(all))
	for _, s := range all {
		out = append(out, entry{s.ID, s.BaseURL, s.Username, s.CreatedAt.Format(time.RFC3339)})
	}
	printJSON(cmd, out)
}
