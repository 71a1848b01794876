// Package imageproxy streams chapter images from a fixed set of origin hosts
// so browsers can load them without the origin's hotlink protection.
package imageproxy

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mangalife/mangalife-server/pkg/errcodes"
	"github.com/pkg/errors"
	echologger "github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/net/idna"
)

const DefaultCacheControl = "public, max-age=86400, stale-while-revalidate=604800"

// forwardHeaders are copied from the client request to the origin.
var forwardHeaders = []string{
	"Range",
	"If-Match",
	"If-None-Match",
	"If-Modified-Since",
	"If-Unmodified-Since",
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
}

// passthroughHeaders are copied from the origin response to the client.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Encoding",
	"Content-Range",
	"Cache-Control",
	"Etag",
	"Last-Modified",
	"Accept-Ranges",
	"Content-Length",
	"Vary",
	"Date",
	"Age",
}

var errHostNotAllowed = errors.New("host is not in the allowed hosts list")

type Options struct {
	AllowedHosts []string
	Referer      string
	UserAgent    string
	Timeout      time.Duration
}

type Proxy struct {
	allowed   []string
	referer   string
	userAgent string
	client    *http.Client
}

// New builds a proxy for the given hosts. Hosts are compared after IDNA
// normalisation. A host listed with a port only matches that port; one listed
// without a port matches the default http and https ports.
func New(opts Options) (*Proxy, error) {
	allowed := make([]string, 0, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		norm, err := normalizeHost(h)
		if err != nil {
			return nil, errors.Wrapf(err, "allowed host %q", h)
		}
		allowed = append(allowed, norm)
	}

	p := &Proxy{
		allowed:   allowed,
		referer:   opts.Referer,
		userAgent: opts.UserAgent,
	}
	p.client = &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			return p.checkHost(req.URL.Host)
		},
	}
	return p, nil
}

// Allowed reports whether host (optionally with a port) may be proxied.
func (p *Proxy) Allowed(host string) bool {
	return p.checkHost(host) == nil
}

func (p *Proxy) checkHost(host string) error {
	norm, err := normalizeHost(host)
	if err != nil {
		return errors.WithStack(err)
	}
	hostname, port := splitHostPort(norm)

	for _, allowed := range p.allowed {
		allowedHostname, allowedPort := splitHostPort(allowed)
		if hostname != allowedHostname {
			continue
		}
		if allowedPort != "" {
			if port == allowedPort {
				return nil
			}
			continue
		}
		if port == "" || port == "80" || port == "443" {
			return nil
		}
	}
	return errors.Wrapf(errHostNotAllowed, "host %q", host)
}

// Serve fetches the image named by the url query parameter and streams it back.
func (p *Proxy) Serve(c echo.Context) error {
	raw := c.QueryParam("url")
	if raw == "" {
		return errcodes.BadRequest("Missing url parameter")
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return errcodes.BadRequest("Invalid url parameter")
	}
	if !p.Allowed(target.Host) {
		return errcodes.Forbidden("Proxying to this host")
	}

	req := c.Request()
	upstreamReq, err := http.NewRequestWithContext(req.Context(), req.Method, target.String(), nil)
	if err != nil {
		return errors.WithStack(err)
	}
	upstreamReq.Header.Set("Referer", p.referer)
	upstreamReq.Header.Set("User-Agent", p.userAgent)
	for _, h := range forwardHeaders {
		if v := req.Header.Get(h); v != "" {
			upstreamReq.Header.Set(h, v)
		}
	}

	log := echologger.FromEchoContext(c)
	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		log.Warn("image fetch failed", logger.Data{"host": target.Host, "error": err.Error()})
		return errcodes.BadGateway("Failed to fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warn("image origin returned an error", logger.Data{"host": target.Host, "status": resp.StatusCode})
		return errcodes.BadGateway("Failed to fetch image: " + http.StatusText(resp.StatusCode))
	}

	header := c.Response().Header()
	for _, h := range passthroughHeaders {
		if v := resp.Header.Get(h); v != "" {
			header.Set(h, v)
		}
	}
	if header.Get("Cache-Control") == "" {
		header.Set("Cache-Control", DefaultCacheControl)
	}
	header.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
	header.Set("Cross-Origin-Resource-Policy", "cross-origin")

	c.Response().WriteHeader(resp.StatusCode)
	if resp.StatusCode == http.StatusNotModified || req.Method == http.MethodHead {
		return nil
	}
	_, err = io.Copy(c.Response(), resp.Body)
	return errors.WithStack(err)
}

// normalizeHost lowercases host and converts an internationalised name to its
// ASCII form, keeping any port.
func normalizeHost(host string) (string, error) {
	hostname, port := splitHostPort(strings.TrimSpace(host))
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return "", errors.WithStack(err)
	}
	ascii = strings.ToLower(ascii)
	if port != "" {
		return net.JoinHostPort(ascii, port), nil
	}
	return ascii, nil
}

func splitHostPort(host string) (string, string) {
	hostname, port, err := net.SplitHostPort(host)
	if err != nil {
		return strings.Trim(host, "[]"), ""
	}
	return hostname, port
}
