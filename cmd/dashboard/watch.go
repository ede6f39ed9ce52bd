package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/model"
	"github.com/rickgao/candidate-tracker/internal/realtime"
)

var (
	connectedColor    = color.New(color.FgGreen, color.Bold)
	connectingColor   = color.New(color.FgYellow, color.Bold)
	disconnectedColor = color.New(color.FgRed, color.Bold)
	createdColor      = color.New(color.FgGreen)
	updatedColor      = color.New(color.FgCyan)
	deletedColor      = color.New(color.FgRed)
	dimColor          = color.New(color.Faint)
)

func statusColor(s realtime.Status) *color.Color {
	switch s {
	case realtime.StatusConnected:
		return connectedColor
	case realtime.StatusConnecting:
		return connectingColor
	default:
		return disconnectedColor
	}
}

// noticePrinter renders dashboard notices as terminal lines.
type noticePrinter struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (p *noticePrinter) print(n dashboard.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := dimColor.Sprint(p.now().Format("15:04:05"))
	switch n.Kind {
	case dashboard.NoticeStatus:
		line := statusColor(n.Status).Sprintf("● %s", n.Status)
		if n.Error != "" {
			line += " " + dimColor.Sprintf("(%s)", n.Error)
		}
		fmt.Fprintf(p.out, "%s %s\n", ts, line)
	case dashboard.NoticeCreated:
		fmt.Fprintf(p.out, "%s %s %s, %s [%s]\n", ts, createdColor.Sprint("+ added"), n.Candidate.FullName, n.Candidate.AppliedPosition, n.Candidate.Status)
	case dashboard.NoticeUpdated:
		fmt.Fprintf(p.out, "%s %s %s is now %s\n", ts, updatedColor.Sprint("~ updated"), n.Candidate.FullName, n.Candidate.Status)
	case dashboard.NoticeDeleted:
		name := n.Candidate.FullName
		if name == "" {
			name = n.Candidate.ID
		}
		fmt.Fprintf(p.out, "%s %s %s\n", ts, deletedColor.Sprint("- removed"), name)
	}
}

func printStats(w io.Writer, s model.Stats) {
	fmt.Fprintf(w, "%d candidates: %d new, %d interviewing, %d hired, %d rejected\n",
		s.Total, s.New, s.Interviewing, s.Hired, s.Rejected)
}

func newWatchCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream candidate changes and the realtime status to the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := &noticePrinter{out: out, now: time.Now}
			a, err := buildApp(ctx, cfg, logger, dashboard.WithNotifier(p.print))
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.dash.Start(ctx); err != nil {
				return err
			}
			printStats(out, a.dash.Stats())

			<-ctx.Done()
			return nil
		},
	}
}
