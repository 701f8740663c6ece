// Package live keeps one push subscription per mounted widget and speaks the
// cable protocol used by the /cable endpoint.
package live

import (
	"errors"
	"fmt"

	"github.com/gosuda/widgetboard/internal/domain"
)

// ErrUnknownKind is returned for widget kinds without a content channel.
var ErrUnknownKind = errors.New("live: unknown widget kind")

// channels maps every widget kind to the channel that feeds it. Adding a kind
// is one row here.
var channels = map[domain.WidgetKind]string{ //nolint:gochecknoglobals // lookup table
	domain.WidgetKindChart: "ChartWidgetChannel",
	domain.WidgetKindMap:   "MapWidgetChannel",
	domain.WidgetKindStat:  "StatWidgetChannel",
}

// ChannelFor returns the channel identifier for kind.
func ChannelFor(kind domain.WidgetKind) (string, error) {
	name, ok := channels[kind]
	if !ok {
		return "", fmt.Errorf("live.ChannelFor %q: %w", kind, ErrUnknownKind)
	}
	return name, nil
}

// KindForChannel is the inverse of ChannelFor.
func KindForChannel(name string) (domain.WidgetKind, error) {
	for kind, ch := range channels {
		if ch == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("live.KindForChannel %q: %w", name, ErrUnknownKind)
}
