package network

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/jlaffaye/ftp"
)

// Resource is a document retrieved from a URL, ready for parsing.
type Resource struct {
	URL         string
	Data        []byte
	ContentType string
	Charset     string
	StatusCode  int
	Cached      bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithClient sets the HTTP client used for http and https URLs.
func WithClient(c *Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithCache enables response caching with the given cache.
func WithCache(cache *Cache) FetcherOption {
	return func(f *Fetcher) {
		f.cache = cache
	}
}

// Fetcher retrieves documents over http, https, ftp, file and data
// URLs, caching HTTP responses per their cache headers.
type Fetcher struct {
	client *Client
	cache  *Cache
}

// NewFetcher creates a Fetcher. Without options it uses a default HTTP
// client and no cache.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		c, err := NewClient()
		if err != nil {
			return nil, err
		}
		f.client = c
	}
	return f, nil
}

// Fetch retrieves the document at the given URL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	if IsDataURL(rawURL) {
		return fetchData(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL)
	case "ftp":
		return fetchFTP(ctx, u)
	case "file", "":
		return fetchFile(u)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) (*Resource, error) {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		key = rawURL
	}
	if f.cache != nil {
		if entry, ok := f.cache.Get(key); ok && !entry.IsExpired() {
			res := resourceFromResponse(rawURL, entry.Response)
			res.Cached = true
			return res, nil
		}
	}
	resp, err := f.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}
	if f.cache != nil {
		f.cache.Set(key, resp)
	}
	return resourceFromResponse(rawURL, resp), nil
}

func resourceFromResponse(rawURL string, resp *Response) *Resource {
	mediaType, charset := ParseContentType(resp.ContentType)
	return &Resource{
		URL:         rawURL,
		Data:        resp.Body,
		ContentType: mediaType,
		Charset:     charset,
		StatusCode:  resp.StatusCode,
	}
}

func fetchData(rawURL string) (*Resource, error) {
	d, err := ParseDataURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Resource{
		URL:         rawURL,
		Data:        d.Data,
		ContentType: d.MediaType,
		Charset:     strings.ToLower(d.Charset),
		StatusCode:  200,
	}, nil
}

func fetchFile(u *url.URL) (*Resource, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		URL:         u.String(),
		Data:        data,
		ContentType: GuessContentType(path),
		StatusCode:  200,
	}, nil
}

func fetchFTP(ctx context.Context, u *url.URL) (*Resource, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial %s: %w", addr, err)
	}
	defer conn.Quit()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return nil, fmt.Errorf("ftp login %s: %w", addr, err)
	}

	r, err := conn.Retr(strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("ftp retrieve %s: %w", u.Path, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Resource{
		URL:         u.String(),
		Data:        data,
		ContentType: GuessContentType(u.Path),
		StatusCode:  200,
	}, nil
}

var (
	defaultFetcher     *Fetcher
	defaultFetcherOnce sync.Once
	defaultFetcherErr  error
)

// Fetch retrieves a document with a shared default Fetcher.
func Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	defaultFetcherOnce.Do(func() {
		defaultFetcher, defaultFetcherErr = NewFetcher(WithCache(NewCache(256)))
	})
	if defaultFetcherErr != nil {
		return nil, defaultFetcherErr
	}
	return defaultFetcher.Fetch(ctx, rawURL)
}
