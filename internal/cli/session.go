package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gosuda/widgetboard/internal/board"
	"github.com/gosuda/widgetboard/internal/client"
	"github.com/gosuda/widgetboard/internal/live"
	"github.com/gosuda/widgetboard/internal/widget"
)

// session bundles what every command needs.
type session struct {
	profile *Profile
	client  *client.Client
	log     zerolog.Logger
	in      io.Reader
	out     io.Writer
}

func newSession(cmd *cobra.Command) (*session, error) {
	p, err := LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		p.Server = serverFlag
	}
	if tokenFlag != "" {
		p.Token = tokenFlag
	}
	if p.Server == "" {
		return nil, errors.New("no server configured: pass --server or set it in the profile")
	}

	c, err := client.New(p.Server, p.Token)
	if err != nil {
		return nil, err
	}
	return &session{
		profile: p,
		client:  c,
		log:     newLogger(),
		in:      cmd.InOrStdin(),
		out:     cmd.OutOrStdout(),
	}, nil
}

// openBoard loads a dashboard and builds its board. Widgets are not mounted.
func (s *session) openBoard(ctx context.Context, dashboardID uuid.UUID, transport live.Transport, confirm widget.Confirmer, onRender func(uuid.UUID, widget.ViewState)) (*board.Board, *client.DashboardView, error) {
	view, err := s.client.GetDashboard(ctx, dashboardID)
	if err != nil {
		return nil, nil, err
	}

	d := view.Dashboard
	if s.profile.Width > 0 {
		d.Width = s.profile.Width
	}
	if s.profile.Height > 0 {
		d.Height = s.profile.Height
	}

	if confirm == nil {
		confirm = promptConfirmer(s.in, s.out)
	}
	b, err := board.New(d, view.Widgets, board.Deps{
		Transport: transport,
		Persister: s.client,
		Confirmer: confirm,
		Logger:    s.log,
		OnRender:  onRender,
	})
	if err != nil {
		return nil, nil, err
	}
	return b, view, nil
}

// gesture mounts a single widget offline, runs fn on its controller and waits
// for the resulting persistence call.
func (s *session) gesture(ctx context.Context, dashboardID, widgetID uuid.UUID, fn func(*widget.Controller)) (widget.ViewState, error) {
	offline := s.offlineTransport()
	defer offline.Close()

	b, _, err := s.openBoard(ctx, dashboardID, offline, nil, nil)
	if err != nil {
		return widget.ViewState{}, err
	}
	ctrl, err := b.Controller(widgetID)
	if err != nil {
		return widget.ViewState{}, err
	}
	if err := ctrl.Mount(); err != nil {
		return widget.ViewState{}, err
	}
	defer func() {
		if err := ctrl.Unmount(); err != nil {
			s.log.Warn().Err(err).Stringer("widget_id", ctrl.ID()).Msg("unmount failed")
		}
	}()

	fn(ctrl)
	ctrl.Wait()
	return ctrl.View(), nil
}

// offlineTransport returns a consumer that is never started. Subscriptions are
// registered but no connection is made; one-shot gestures need no content.
func (s *session) offlineTransport() *live.Consumer {
	return live.NewConsumer(s.client.CableURL(), live.WithLogger(s.log))
}

func promptConfirmer(in io.Reader, out io.Writer) widget.Confirmer {
	reader := bufio.NewReader(in)
	return widget.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
