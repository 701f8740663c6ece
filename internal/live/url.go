package live

import "net/url"

// CablePath is the well-known path of the live channel endpoint.
const CablePath = "/cable"

// CableURL derives the channel endpoint from the page (or API base) URL: the
// secure websocket scheme for https pages, the page's own host and port, and
// the fixed cable path.
func CableURL(page *url.URL) string {
	scheme := "ws"
	if page.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: page.Host, Path: CablePath}
	return u.String()
}
