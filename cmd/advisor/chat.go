package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentoven/advisor-desk/internal/chat"
	"github.com/agentoven/advisor-desk/internal/reply"
	"github.com/agentoven/advisor-desk/internal/router"
	"github.com/agentoven/advisor-desk/internal/sessions"
	"github.com/agentoven/advisor-desk/pkg/models"
	"github.com/agentoven/advisor-desk/pkg/server"
)

const chatHelp = `Commands:
  @agent-id message   send to an agent or team (pins it)
  @text               search agents and teams
  /use <id>           pin an agent or team
  /unpin              unpin, keeping the conversation
  /clear              new conversation with the same responder
  /home               new conversation, nothing pinned
  /profile <user-id>  attach a stored profile ("/profile none" detaches)
  /library            list agents and teams
  /quit               exit`

func newChatCmd() *cobra.Command {
	var (
		profileID string
		plain     bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with agents and teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srv, err := server.NewWithConfig(ctx, cfg)
			if err != nil {
				return err
			}
			defer srv.ShutdownFunc(context.Background())

			r := newREPL(srv.Chat, srv.Catalog, cmd.OutOrStdout(), !plain)
			if profileID != "" {
				if _, err := srv.Chat.SetActiveProfile(ctx, r.handle, profileID); err != nil {
					return fmt.Errorf("attach profile: %w", err)
				}
				r.profileID = profileID
			}
			return r.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "attach a stored profile by user id")
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

// library lists responders for /library.
type library interface {
	Agents() []models.Responder
	Teams() []models.Responder
}

// repl is a line-oriented chat loop over one session.
type repl struct {
	svc      *chat.Service
	lib      library
	out      io.Writer
	handle   string
	renderer *glamour.TermRenderer

	// profileID is reattached when the session has to be reopened.
	profileID string
}

func newREPL(svc *chat.Service, lib library, out io.Writer, pretty bool) *repl {
	r := &repl{svc: svc, lib: lib, out: out, handle: svc.NewSession().Handle}
	if pretty {
		if f, ok := out.(*os.File); ok && isTerminal(f) {
			r.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
		}
	}
	return r
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, color.CyanString("Advisor Desk")+" "+color.HiBlackString("(/help for commands)"))
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, r.prompt())
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		if quit := r.handleLine(ctx, sc.Text()); quit {
			return nil
		}
	}
}

func (r *repl) prompt() string {
	sess, err := r.svc.Snapshot(r.handle)
	if err != nil || sess.Selected == nil {
		return color.HiBlackString("> ")
	}
	return color.GreenString("@"+sess.Selected.ID) + color.HiBlackString(" > ")
}

// handleLine processes one input line and reports whether to exit.
func (r *repl) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "/") {
		return r.command(ctx, trimmed)
	}

	var out *chat.Outcome
	err := r.withSession(ctx, func() (err error) {
		out, err = r.svc.Submit(ctx, r.handle, line)
		return err
	})
	if err != nil {
		r.errorf("%v", err)
		return false
	}
	r.renderOutcome(out)
	return false
}

func (r *repl) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(r.out, chatHelp)
	case "clear":
		err = r.withSession(ctx, func() error {
			_, err := r.svc.ClearChat(r.handle)
			return err
		})
		if err == nil {
			r.info("Started a new conversation.")
		}
	case "home":
		err = r.withSession(ctx, func() error {
			_, err := r.svc.GoHome(r.handle)
			return err
		})
		if err == nil {
			r.info("Back home. Nothing is pinned.")
		}
	case "unpin":
		err = r.withSession(ctx, func() error {
			_, err := r.svc.ClearSelection(r.handle)
			return err
		})
	case "use":
		if arg == "" {
			r.errorf("usage: /use <id>")
			return false
		}
		err = r.withSession(ctx, func() error {
			_, err := r.svc.Choose(ctx, r.handle, arg)
			return err
		})
		if err == nil {
			r.info("Now chatting with @" + arg)
		}
	case "profile":
		if arg == "none" {
			arg = ""
		}
		err = r.withSession(ctx, func() error {
			_, err := r.svc.SetActiveProfile(ctx, r.handle, arg)
			return err
		})
		if err == nil {
			r.profileID = arg
			if arg == "" {
				r.info("Profile detached.")
			} else {
				r.info("Profile " + arg + " attached.")
			}
		}
	case "library":
		r.renderLibrary()
	default:
		r.errorf("unknown command /%s (try /help)", name)
	}
	if err != nil {
		r.errorf("%v", err)
	}
	return false
}

// withSession runs fn against the REPL's session. A session evicted for
// inactivity is replaced with a fresh one and fn is retried once.
func (r *repl) withSession(ctx context.Context, fn func() error) error {
	err := fn()
	var nf *sessions.ErrNotFound
	if !errors.As(err, &nf) {
		return err
	}

	r.handle = r.svc.NewSession().Handle
	if r.profileID != "" {
		if _, perr := r.svc.SetActiveProfile(ctx, r.handle, r.profileID); perr != nil {
			r.errorf("profile %s not reattached: %v", r.profileID, perr)
			r.profileID = ""
		}
	}
	r.info("Session expired after inactivity. Started a new conversation.")
	return fn()
}

func (r *repl) renderOutcome(out *chat.Outcome) {
	switch out.Kind {
	case chat.OutcomeIgnored:
	case chat.OutcomeHint:
		r.info(out.Hint)
	case chat.OutcomeSearch:
		r.renderSearch(out.Search)
	case chat.OutcomeSent:
		if out.Reset {
			r.info("New conversation with @" + out.Responder.ID)
		}
		if out.Reply == nil {
			return
		}
		if out.Class != reply.ClassSuccess && out.Class != reply.ClassEmpty {
			r.errorf("%s", out.Reply.Content)
			return
		}
		r.renderReply(out.Reply)
	}
}

func (r *repl) renderSearch(res *router.Results) {
	if res == nil {
		return
	}
	if res.Empty() {
		r.info(fmt.Sprintf("No agents or teams match %q.", res.Query))
		return
	}
	for _, t := range res.Teams {
		fmt.Fprintf(r.out, "  %s %s %s\n", color.MagentaString("team "), color.GreenString("@"+t.ID), t.Name)
	}
	for _, a := range res.Agents {
		fmt.Fprintf(r.out, "  %s %s %s\n", color.BlueString("agent"), color.GreenString("@"+a.ID), a.Name)
	}
	r.info("Pick one with /use <id> or send @id message.")
}

func (r *repl) renderReply(m *models.Message) {
	body := m.Content
	if r.renderer != nil {
		if rendered, err := r.renderer.Render(body); err == nil {
			body = rendered
		}
	}
	fmt.Fprintln(r.out, strings.TrimRight(body, "\n"))
	if m.TokenCount > 0 {
		fmt.Fprintln(r.out, color.HiBlackString("%d tokens", m.TokenCount))
	}
}

func (r *repl) renderLibrary() {
	teams, agents := r.lib.Teams(), r.lib.Agents()
	if len(teams)+len(agents) == 0 {
		r.info("The library is empty. Is the backend running?")
		return
	}
	for _, t := range teams {
		fmt.Fprintf(r.out, "  %s %s %s\n", color.MagentaString("team "), color.GreenString("@"+t.ID), t.Name)
	}
	for _, a := range agents {
		fmt.Fprintf(r.out, "  %s %s %s\n", color.BlueString("agent"), color.GreenString("@"+a.ID), a.Name)
	}
}

func (r *repl) info(msg string) {
	fmt.Fprintln(r.out, color.HiBlackString(msg))
}

func (r *repl) errorf(format string, args ...interface{}) {
	fmt.Fprintln(r.out, color.RedString(format, args...))
}
