package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error

	gotURL string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.gotURL = req.URL.String()
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func TestFetch(t *testing.T) {
	xml := string(loadFixture(t, "../../testdata/sample_rss.xml"))

	tests := []struct {
		name      string
		transport *mockTransport
		wantTitle string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "DevOps Weekly",
			wantItems: 3,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
		{
			name:      "unknown root element",
			transport: &mockTransport{body: "<html><body>nope</body></html>", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			feed, err := f.Fetch(context.Background(), "https://example.com/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, feed.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(feed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchNormalizesSchemelessURL(t *testing.T) {
	xml := string(loadFixture(t, "../../testdata/sample_rss.xml"))
	transport := &mockTransport{body: xml, statusCode: 200}

	f := New(transport)
	if _, err := f.Fetch(context.Background(), "example.com/rss"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff("https://example.com/rss", transport.gotURL); diff != "" {
		t.Errorf("requested URL mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	xml := string(loadFixture(t, "../../testdata/sample_rss.xml"))
	transport := &mockTransport{body: xml, statusCode: 200}

	f := New(transport)
	f.maxBody = 256

	_, err := f.Fetch(context.Background(), "https://example.com/rss")
	if err == nil {
		t.Fatal("expected error for body over the size cap, got nil")
	}

	// At the cap the same document is fine.
	f.maxBody = int64(len(xml))
	if _, err := f.Fetch(context.Background(), "https://example.com/rss"); err != nil {
		t.Fatalf("unexpected error at exact cap: %v", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com/rss", "https://example.com/rss"},
		{"http://example.com/rss", "http://example.com/rss"},
		{"https://example.com/rss", "https://example.com/rss"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
