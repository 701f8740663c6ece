package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/widgetboard/internal/domain"
)

func newOptionsCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "options DASHBOARD KEY=VALUE...",
		Short: "Update a dashboard's request options",
		Long: "Values are parsed as JSON when possible (true, 42, [\"eu\"]) and taken as " +
			"plain strings otherwise. Widgets of watching clients redraw while online=true.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			updates, err := parseOptionArgs(args[1:])
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			opts := domain.RequestOptions{}
			if !replace {
				view, err := s.client.GetDashboard(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				opts = view.Dashboard.RequestOptions.Clone()
				if opts == nil {
					opts = domain.RequestOptions{}
				}
			}
			for k, v := range updates {
				opts[k] = v
			}

			if err := s.client.SetRequestOptions(cmd.Context(), ids[0], opts); err != nil {
				return err
			}
			out, _ := json.Marshal(opts)
			fmt.Fprintln(s.out, string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace all options instead of merging")
	return cmd
}

func parseOptionArgs(args []string) (domain.RequestOptions, error) {
	opts := domain.RequestOptions{}
	for _, a := range args {
		key, raw, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid option %q, want KEY=VALUE", a)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		opts[key] = v
	}
	return opts, nil
}
