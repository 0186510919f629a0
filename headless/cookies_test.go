package headless

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gogpu/webview/engine"
)

// syncPost runs callbacks inline.
func syncPost(task func()) bool {
	task()
	return true
}

func TestCookieStoreSetCookie(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		cookie engine.Cookie
		want   bool
	}{
		{"host cookie", "https://example.com/", engine.Cookie{Name: "a", Value: "1"}, true},
		{"domain cookie", "https://www.example.com/", engine.Cookie{Name: "b", Value: "2", Domain: ".example.com"}, true},
		{"path cookie", "https://example.com/app", engine.Cookie{Name: "c", Value: "3", Path: "/app", Secure: true, HTTPOnly: true}, true},
		{"foreign domain", "https://example.com/", engine.Cookie{Name: "d", Value: "4", Domain: "other.org"}, false},
		{"public suffix", "https://example.com/", engine.Cookie{Name: "e", Value: "5", Domain: "com"}, false},
		{"bad value", "https://example.com/", engine.Cookie{Name: "f", Value: "x;y"}, false},
		{"no name", "https://example.com/", engine.Cookie{Value: "1"}, false},
		{"relative url", "/path", engine.Cookie{Name: "g", Value: "1"}, false},
		{"ftp url", "ftp://example.com/", engine.Cookie{Name: "h", Value: "1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newCookieStore(syncPost)
			got, called := false, false
			if !s.SetCookie(tt.url, tt.cookie, func(ok bool) { got, called = ok, true }) {
				t.Fatal("SetCookie rejected the request")
			}
			if !called {
				t.Fatal("done was not called")
			}
			if got != tt.want {
				t.Errorf("SetCookie success = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCookieStoreDeleteAll(t *testing.T) {
	s := newCookieStore(syncPost)
	s.SetCookie("https://example.com/", engine.Cookie{Name: "a", Value: "1"}, nil)
	s.SetCookie("https://example.com/", engine.Cookie{Name: "b", Value: "2"}, nil)
	s.SetCookie("http://other.org/", engine.Cookie{Name: "c", Value: "3"}, nil)

	n := -1
	if !s.DeleteCookies("", "", func(deleted int) { n = deleted }) {
		t.Fatal("DeleteCookies rejected the request")
	}
	if n != 3 {
		t.Errorf("deleted = %d, want 3", n)
	}
	if got := s.Cookies(mustParseURL(t, "https://example.com/")); len(got) != 0 {
		t.Errorf("cookies after delete = %v", got)
	}
}

func TestCookieStoreDeleteByName(t *testing.T) {
	s := newCookieStore(syncPost)
	s.SetCookie("https://example.com/", engine.Cookie{Name: "keep", Value: "1"}, nil)
	s.SetCookie("https://example.com/", engine.Cookie{Name: "drop", Value: "2"}, nil)

	n := -1
	s.DeleteCookies("https://example.com/", "drop", func(deleted int) { n = deleted })
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	got := s.Cookies(mustParseURL(t, "https://example.com/"))
	if len(got) != 1 || got[0].Name != "keep" {
		t.Errorf("cookies = %v, want only keep", got)
	}

	if s.DeleteCookies("not a url", "x", nil) {
		t.Error("DeleteCookies accepted an invalid url")
	}
}

func TestCookieStoreRejectedPost(t *testing.T) {
	s := newCookieStore(func(func()) bool { return false })
	if s.SetCookie("https://example.com/", engine.Cookie{Name: "a", Value: "1"}, func(bool) {}) {
		t.Error("SetCookie reported success although the callback could not be posted")
	}
}

func TestCookieStoreServesHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		c, err := r.Cookie("session")
		if err != nil {
			io.WriteString(w, "none")
			return
		}
		io.WriteString(w, c.Value)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newCookieStore(syncPost)
	l := newTestLoader(s)
	ctx := context.Background()
	if _, err := l.load(ctx, &engine.Request{URL: srv.URL + "/set"}); err != nil {
		t.Fatal(err)
	}
	doc, err := l.load(ctx, &engine.Request{URL: srv.URL + "/echo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.blocks) != 1 || doc.blocks[0].text != "abc" {
		t.Errorf("echo = %+v, want the stored session cookie", doc.blocks)
	}

	s.DeleteCookies("", "", nil)
	doc, err = l.load(ctx, &engine.Request{URL: srv.URL + "/echo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.blocks) != 1 || doc.blocks[0].text != "none" {
		t.Errorf("echo after clear = %+v", doc.blocks)
	}
}
