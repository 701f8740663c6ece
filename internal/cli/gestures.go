package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gosuda/widgetboard/internal/widget"
)

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move DASHBOARD WIDGET X Y",
		Short: "Drag a widget to a new position and bring it to the front",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parsePair(args[2], args[3])
			if err != nil {
				return err
			}
			return runGesture(cmd, args[:2], func(c *widget.Controller) {
				c.DragStart()
				c.DragStop(x, y)
			})
		},
	}
}

func newResizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resize DASHBOARD WIDGET WIDTH HEIGHT",
		Short: "Resize a widget",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, h, err := parsePair(args[2], args[3])
			if err != nil {
				return err
			}
			return runGesture(cmd, args[:2], func(c *widget.Controller) {
				c.ResizeStop(w, h)
			})
		},
	}
}

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand DASHBOARD WIDGET",
		Short: "Toggle a widget between normal and full-dashboard size",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGesture(cmd, args, func(c *widget.Controller) {
				c.ToggleExpand()
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove DASHBOARD WIDGET",
		Short: "Delete a widget after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			var confirm widget.Confirmer
			if yes {
				confirm = widget.ConfirmFunc(func(_ context.Context, _ string) (bool, error) { return true, nil })
			}
			offline := s.offlineTransport()
			defer offline.Close()

			b, _, err := s.openBoard(cmd.Context(), ids[0], offline, confirm, nil)
			if err != nil {
				return err
			}
			removed, err := b.Remove(cmd.Context(), ids[1])
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintln(s.out, "removed")
			} else {
				fmt.Fprintln(s.out, "kept")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runGesture(cmd *cobra.Command, args []string, fn func(*widget.Controller)) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	v, err := s.gesture(cmd.Context(), ids[0], ids[1], fn)
	if err != nil {
		return err
	}
	printGeometry(s.out, v)
	return nil
}

func printGeometry(out io.Writer, v widget.ViewState) {
	g := v.Geometry
	fmt.Fprintf(out, "x=%d y=%d w=%d h=%d z=%d expanded=%t\n", g.X, g.Y, g.Width, g.Height, g.Z, v.Expanded)
}

func parsePair(a, b string) (int, int, error) {
	x, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", a)
	}
	y, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", b)
	}
	if x < 0 || y < 0 {
		return 0, 0, fmt.Errorf("negative values are not allowed")
	}
	return x, y, nil
}
