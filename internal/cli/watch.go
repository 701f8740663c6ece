package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/live"
	"github.com/gosuda/widgetboard/internal/widget"
)

func newWatchCmd() *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch DASHBOARD",
		Short: "Mount every widget of a dashboard and stream its live content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return s.watch(ctx, ids[0], poll)
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", 5*time.Second, "How often to check the dashboard's request options (0 disables)")
	return cmd
}

func (s *session) watch(ctx context.Context, dashboardID uuid.UUID, poll time.Duration) error {
	consumer := live.NewConsumer(s.client.CableURL(),
		live.WithHeader(s.client.Header()),
		live.WithLogger(s.log),
	)
	consumer.Start(ctx)
	defer consumer.Close()

	printer := newRenderPrinter(s.out)
	b, view, err := s.openBoard(ctx, dashboardID, consumer, nil, printer.render)
	if err != nil {
		return err
	}
	for _, w := range view.Widgets {
		printer.title(w)
	}
	if err := b.MountAll(); err != nil {
		return err
	}
	defer func() {
		_ = b.UnmountAll()
		b.Wait()
	}()

	d := b.Dashboard()
	fmt.Fprintf(s.out, "watching %s (%d widgets, %dx%d)\n", d.Name, len(view.Widgets), d.Width, d.Height)

	if poll <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			latest, err := s.client.GetDashboard(ctx, dashboardID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Warn().Err(err).Msg("polling dashboard failed")
				continue
			}
			b.SetRequestOptions(latest.Dashboard.RequestOptions)
		}
	}
}

// renderPrinter prints channel state changes and content arrivals.
type renderPrinter struct {
	out io.Writer

	mu     sync.Mutex
	titles map[uuid.UUID]string
	last   map[uuid.UUID]widget.ViewState
}

func newRenderPrinter(out io.Writer) *renderPrinter {
	return &renderPrinter{
		out:    out,
		titles: map[uuid.UUID]string{},
		last:   map[uuid.UUID]widget.ViewState{},
	}
}

func (p *renderPrinter) title(w domain.Widget) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.titles[w.ID] = fmt.Sprintf("%s [%s]", w.Title, w.Kind)
}

func (p *renderPrinter) render(id uuid.UUID, v widget.ViewState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, seen := p.last[id]
	p.last[id] = v
	name := p.titles[id]
	now := time.Now().Format(time.TimeOnly)

	if !seen || prev.ChannelState != v.ChannelState {
		fmt.Fprintf(p.out, "%s %s: %s\n", now, name, v.ChannelState)
	}
	if len(v.WidgetData) > 0 && string(prev.WidgetData) != string(v.WidgetData) {
		fmt.Fprintf(p.out, "%s %s: content %s\n", now, name, humanize.Bytes(uint64(len(v.WidgetData))))
	}
}
