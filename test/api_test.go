package test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

const browserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// postPaste uploads body and returns the encoded id from the response.
func postPaste(t *testing.T, ts *httptest.Server, path, body string) string {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/octet-stream", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST %s: status %d", path, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSuffix(string(raw), "\n")
	if !strings.HasPrefix(line, testURLPrefix) {
		t.Fatalf("response body %q does not start with url prefix", line)
	}
	return strings.TrimPrefix(line, testURLPrefix)
}

func TestPostThenGet(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/", "lol")

	resp, err := http.Get(ts.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "lol" {
		t.Errorf("got %q", data)
	}
}

func TestPutBehavesLikePost(t *testing.T) {
	ts, _ := setupServer(t, nil)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/", strings.NewReader("via put"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	id := strings.TrimPrefix(strings.TrimSuffix(string(raw), "\n"), testURLPrefix)

	resp2, err := http.Get(ts.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	data, _ := io.ReadAll(resp2.Body)
	if string(data) != "via put" {
		t.Errorf("got %q", data)
	}
}

func TestExpiresNever(t *testing.T) {
	ts, store := setupServer(t, nil)
	id := postPaste(t, ts, "/?expires=never", "keep me")

	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.BestBefore != nil {
		t.Errorf("best before = %v, want nil", entry.BestBefore)
	}
}

func TestExpiresDefaultTTL(t *testing.T) {
	c := testConfig()
	c.DefaultTTL = 3 * time.Hour
	ts, store := setupServer(t, c)
	before := time.Now()
	id := postPaste(t, ts, "/", "short lived")

	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.BestBefore == nil {
		t.Fatal("best before not set")
	}
	want := before.Add(3 * time.Hour)
	if entry.BestBefore.Before(want.Add(-time.Minute)) || entry.BestBefore.After(want.Add(time.Minute)) {
		t.Errorf("best before = %v, want about %v", entry.BestBefore, want)
	}
}

func TestExpiresUnixTimestamp(t *testing.T) {
	ts, store := setupServer(t, nil)
	deadline := time.Now().Add(48 * time.Hour).Unix()
	id := postPaste(t, ts, "/?expires="+itoa(deadline), "timed")

	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.BestBefore == nil || entry.BestBefore.Unix() != deadline {
		t.Errorf("best before = %v, want unix %d", entry.BestBefore, deadline)
	}
}

func TestExpiresGarbageRejected(t *testing.T) {
	ts, store := setupServer(t, nil)
	resp, err := http.Post(ts.URL+"/?expires=tomorrow", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Error("rejected upload was stored")
	}
}

func TestDeleteThenGet(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/", "temporary")

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("GET after DELETE: status %d, want 404", resp2.StatusCode)
	}

	// Deleting again is idempotent.
	req2, _ := http.NewRequest(http.MethodDelete, ts.URL+"/"+id, nil)
	resp3, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("second DELETE: status %d, want 200", resp3.StatusCode)
	}
}

func TestGetUnknownID(t *testing.T) {
	ts, _ := setupServer(t, nil)
	// "AQ" decodes fine but nothing is stored under it.
	resp, err := http.Get(ts.URL + "/AQ")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestGetMalformedID(t *testing.T) {
	ts, _ := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/%2A%2A%2A")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d, want 400", resp.StatusCode)
	}
}

func TestPayloadTooLargeDeclared(t *testing.T) {
	c := testConfig()
	c.MaxPasteSize = 16
	ts, store := setupServer(t, c)
	resp, err := http.Post(ts.URL+"/", "application/octet-stream",
		bytes.NewReader(bytes.Repeat([]byte{1}, 17)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Error("oversized upload was stored")
	}
}

func TestPayloadTooLargeChunked(t *testing.T) {
	c := testConfig()
	c.MaxPasteSize = 16
	ts, store := setupServer(t, c)

	// Hide the reader's type so the client sends chunked encoding and no
	// Content-Length reaches the server.
	body := struct{ io.Reader }{bytes.NewReader(bytes.Repeat([]byte{1}, 64))}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/", body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413", resp.StatusCode)
	}
	if store.Len() != 0 {
		t.Error("oversized upload was stored")
	}
}

func TestFileNameRedirect(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/notes.txt", "the notes")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(ts.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Fatalf("status %d, want 301", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	want := testURLPrefix + id + "/notes.txt"
	if loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}

	// The named URL serves the bytes without another redirect.
	resp2, err := client.Get(ts.URL + "/" + id + "/notes.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("named GET status %d", resp2.StatusCode)
	}
	data, _ := io.ReadAll(resp2.Body)
	if string(data) != "the notes" {
		t.Errorf("got %q", data)
	}
}

func TestNoRedirectWithoutFileName(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/", "nameless")

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(ts.URL + "/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
}

func TestBrowserGetsHTML(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/", "<b>not markup</b>")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/"+id, nil)
	req.Header.Set("User-Agent", browserAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "<b>not markup</b>") {
		t.Error("paste content was not HTML-escaped")
	}
	if !strings.Contains(string(body), "&lt;b&gt;not markup&lt;/b&gt;") {
		t.Error("escaped paste content missing from page")
	}
}

func TestCurlGetsRawBytes(t *testing.T) {
	ts, _ := setupServer(t, nil)
	id := postPaste(t, ts, "/", "plain content")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/"+id, nil)
	req.Header.Set("User-Agent", "curl/8.0.1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "plain content" {
		t.Errorf("got %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		t.Errorf("raw fetch came back as HTML: %q", ct)
	}
}

func TestBinaryPasteNeverRendered(t *testing.T) {
	ts, _ := setupServer(t, nil)
	pngHeader := string([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0})
	id := postPaste(t, ts, "/shot.png", pngHeader)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/"+id+"/shot.png", nil)
	req.Header.Set("User-Agent", browserAgent)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != pngHeader {
		t.Error("binary payload altered in transit")
	}
}

func TestUploadForm(t *testing.T) {
	ts, _ := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<form") {
		t.Error("upload page has no form")
	}
}

func TestPasteShScript(t *testing.T) {
	ts, _ := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/paste.sh")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), testURLPrefix) {
		t.Error("script does not carry the url prefix")
	}
	if !strings.HasPrefix(string(body), "#!/bin/sh") {
		t.Error("script missing shebang")
	}
}

func TestReadmePage(t *testing.T) {
	ts, _ := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/readme")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), testURLPrefix) {
		t.Error("readme does not carry the url prefix")
	}
}

func TestStaticAsset(t *testing.T) {
	c := testConfig()
	c.StaticDir = t.TempDir()
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	if err := os.WriteFile(filepath.Join(c.StaticDir, "logo.png"), pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	ts, _ := setupServer(t, c)

	resp, err := http.Get(ts.URL + "/logo.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, pngHeader) {
		t.Error("asset bytes altered")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := setupServer(t, nil)
	req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/AQ", strings.NewReader("x"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status %d, want 405", resp.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	ts, _ := setupServer(t, nil)
	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}

func TestStoredBytesSurviveRoundTrip(t *testing.T) {
	ts, _ := setupServer(t, nil)
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	id := postPaste(t, ts, "/dump.bin", string(payload))

	resp, err := http.Get(ts.URL + "/" + id + "/dump.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, payload) {
		t.Error("binary payload not byte-identical after round trip")
	}
}
