package network

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ResolveURL resolves a reference URL against a base URL. An absolute
// reference is returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}
	if IsDataURL(ref) {
		return ref, nil
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference URL: %w", err)
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// NormalizeURL normalizes a URL for use as a cache key: lowercased
// scheme and host, default ports removed, query parameters sorted.
func NormalizeURL(urlStr string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	} else if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.RawQuery != "" {
		u.RawQuery = u.Query().Encode()
	}
	return u.String(), nil
}

// IsAbsoluteURL reports whether the URL has a scheme.
func IsAbsoluteURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.IsAbs()
}

// IsDataURL reports whether the URL is a data URL.
func IsDataURL(urlStr string) bool {
	return strings.HasPrefix(strings.ToLower(urlStr), "data:")
}

// DataURL is a parsed data URL.
type DataURL struct {
	MediaType string
	Charset   string
	Base64    bool
	Data      []byte
}

// ParseDataURL parses a data:[<mediatype>][;base64],<data> URL.
func ParseDataURL(urlStr string) (*DataURL, error) {
	if !IsDataURL(urlStr) {
		return nil, fmt.Errorf("not a data URL")
	}
	content := urlStr[len("data:"):]
	comma := strings.Index(content, ",")
	if comma < 0 {
		return nil, fmt.Errorf("invalid data URL: missing comma")
	}

	result := &DataURL{MediaType: "text/plain", Charset: "US-ASCII"}
	for i, part := range strings.Split(content[:comma], ";") {
		switch {
		case i == 0 && part != "" && part != "base64" && !strings.Contains(part, "="):
			result.MediaType = part
		case part == "base64":
			result.Base64 = true
		case strings.HasPrefix(strings.ToLower(part), "charset="):
			result.Charset = part[len("charset="):]
		}
	}

	data := content[comma+1:]
	if result.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 data: %w", err)
		}
		result.Data = decoded
		return result, nil
	}
	decoded, err := url.QueryUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("failed to URL-decode data: %w", err)
	}
	result.Data = []byte(decoded)
	return result, nil
}

// GuessContentType guesses a document content type from the extension
// of a URL path.
func GuessContentType(urlPath string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(urlPath), ".")) {
	case "xml", "xsl", "xslt", "xsd", "rss", "atom":
		return "application/xml"
	case "svg":
		return "image/svg+xml"
	case "xhtml":
		return "application/xhtml+xml"
	case "html", "htm":
		return "text/html"
	case "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
