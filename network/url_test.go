package network

import (
	"testing"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{
			name: "absolute URL unchanged",
			base: "http://example.com/feed.xml",
			ref:  "https://other.com/schema.xsd",
			want: "https://other.com/schema.xsd",
		},
		{
			name: "relative path",
			base: "http://example.com/dir/feed.xml",
			ref:  "schema.xsd",
			want: "http://example.com/dir/schema.xsd",
		},
		{
			name: "relative path with dots",
			base: "http://example.com/dir/sub/feed.xml",
			ref:  "../schema.xsd",
			want: "http://example.com/dir/schema.xsd",
		},
		{
			name: "absolute path",
			base: "http://example.com/dir/feed.xml",
			ref:  "/schemas/item.xsd",
			want: "http://example.com/schemas/item.xsd",
		},
		{
			name: "fragment only",
			base: "http://example.com/feed.xml",
			ref:  "#item1",
			want: "http://example.com/feed.xml#item1",
		},
		{
			name: "data URL unchanged",
			base: "http://example.com/feed.xml",
			ref:  "data:application/xml,<root/>",
			want: "data:application/xml,<root/>",
		},
		{
			name: "empty reference returns base",
			base: "http://example.com/feed.xml",
			ref:  "",
			want: "http://example.com/feed.xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("ResolveURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM/doc.xml", "http://example.com/doc.xml"},
		{"http://example.com:80/doc.xml", "http://example.com/doc.xml"},
		{"https://example.com:443/doc.xml", "https://example.com/doc.xml"},
		{"http://example.com:8080/doc.xml", "http://example.com:8080/doc.xml"},
		{"http://example.com/doc?b=2&a=1", "http://example.com/doc?a=1&b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	if !IsAbsoluteURL("http://example.com/doc.xml") {
		t.Error("http URL should be absolute")
	}
	if IsAbsoluteURL("dir/doc.xml") {
		t.Error("relative path should not be absolute")
	}
}

func TestParseDataURL(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		d, err := ParseDataURL("data:application/xml,%3Croot/%3E")
		if err != nil {
			t.Fatalf("ParseDataURL() error = %v", err)
		}
		if d.MediaType != "application/xml" {
			t.Errorf("MediaType = %q, want %q", d.MediaType, "application/xml")
		}
		if string(d.Data) != "<root/>" {
			t.Errorf("Data = %q, want %q", d.Data, "<root/>")
		}
	})

	t.Run("base64", func(t *testing.T) {
		// "<a/>" base64-encoded.
		d, err := ParseDataURL("data:application/xml;base64,PGEvPg==")
		if err != nil {
			t.Fatalf("ParseDataURL() error = %v", err)
		}
		if !d.Base64 {
			t.Error("Base64 flag not set")
		}
		if string(d.Data) != "<a/>" {
			t.Errorf("Data = %q, want %q", d.Data, "<a/>")
		}
	})

	t.Run("charset", func(t *testing.T) {
		d, err := ParseDataURL("data:text/xml;charset=iso-8859-1,%3Ca/%3E")
		if err != nil {
			t.Fatalf("ParseDataURL() error = %v", err)
		}
		if d.Charset != "iso-8859-1" {
			t.Errorf("Charset = %q, want %q", d.Charset, "iso-8859-1")
		}
	})

	t.Run("missing comma", func(t *testing.T) {
		if _, err := ParseDataURL("data:application/xml"); err == nil {
			t.Error("expected error for data URL without comma")
		}
	})
}

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/feeds/news.xml", "application/xml"},
		{"/schema.xsd", "application/xml"},
		{"/logo.svg", "image/svg+xml"},
		{"/page.xhtml", "application/xhtml+xml"},
		{"/index.html", "text/html"},
		{"/notes.txt", "text/plain"},
		{"/archive.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := GuessContentType(tt.path); got != tt.want {
				t.Errorf("GuessContentType(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
