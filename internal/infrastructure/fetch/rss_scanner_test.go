package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRSSScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
		<rss version="2.0">
		  <channel>
		    <title>Example Feed</title>
		    <item>
		      <title>Rust 2.0 released</title>
		      <link>https://example.org/rust-2.0?utm_source=feed</link>
		      <guid>https://example.org/rust-2.0</guid>
		      <description>The big one.</description>
		      <pubDate>Sat, 01 Aug 2026 10:00:00 +0000</pubDate>
		    </item>
		    <item>
		      <title>No link item</title>
		      <description>identified by hash</description>
		      <pubDate>Sat, 01 Aug 2026 11:00:00 +0000</pubDate>
		    </item>
		  </channel>
		</rss>`))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	items, err := sc.Scan(context.Background(), server.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].ID != "https://example.org/rust-2.0" {
		t.Fatalf("unexpected id: %s", items[0].ID)
	}
	if items[0].Title != "Rust 2.0 released" {
		t.Fatalf("unexpected title: %s", items[0].Title)
	}
	if items[0].Body != "The big one." {
		t.Fatalf("unexpected body: %s", items[0].Body)
	}

	want := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if !items[0].PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", items[0].PublishedAt)
	}

	if items[1].ID == "" {
		t.Fatal("item without link must get a hash identifier")
	}
}

func TestRSSScannerScanAtom(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
		<feed xmlns="http://www.w3.org/2005/Atom">
		  <entry>
		    <title>Wasm on the edge</title>
		    <link rel="alternate" href="https://example.org/wasm-edge"/>
		    <id>tag:example.org,2026:wasm-edge</id>
		    <summary>wasm everywhere</summary>
		    <published>2026-08-02T09:30:00Z</published>
		  </entry>
		</feed>`))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	items, err := sc.Scan(context.Background(), server.URL+"/atom.xml")
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != "tag:example.org,2026:wasm-edge" {
		t.Fatalf("unexpected id: %s", items[0].ID)
	}
	if items[0].Body != "wasm everywhere" {
		t.Fatalf("unexpected body: %s", items[0].Body)
	}
}

func TestRSSScannerMalformedFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not xml`))
	}))
	defer server.Close()

	sc := NewRSSScanner(server.Client())
	_, err := sc.Scan(context.Background(), server.URL+"/feed.xml")
	if err == nil {
		t.Fatal("expected error for malformed feed")
	}
	if IsTransient(err) {
		t.Fatalf("malformed content must be permanent, got transient: %v", err)
	}
}
