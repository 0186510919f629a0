package headless

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/gogpu/webview/engine"
)

var errCookieURL = errors.New("headless: cookie url must be an absolute http or https url")

// cookieStore is the engine-wide cookie jar. The loader's HTTP client reads
// and writes it concurrently with the engine thread.
type cookieStore struct {
	mu   sync.Mutex
	jar  *cookiejar.Jar
	// seen maps each host cookies were stored for to its root URL.
	seen map[string]*url.URL
	// post runs completion callbacks on the engine thread.
	post func(func()) bool
}

var (
	_ http.CookieJar       = (*cookieStore)(nil)
	_ engine.CookieManager = (*cookieStore)(nil)
)

func newCookieStore(post func(func()) bool) *cookieStore {
	return &cookieStore{jar: newJar(), seen: make(map[string]*url.URL), post: post}
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never fails.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// SetCookies implements http.CookieJar.
func (s *cookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember(u)
	s.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (s *cookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

func (s *cookieStore) remember(u *url.URL) {
	if _, ok := s.seen[u.Host]; !ok {
		s.seen[u.Host] = &url.URL{Scheme: "https", Host: u.Host, Path: "/"}
	}
}

func parseCookieURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, errCookieURL
	}
	return u, nil
}

// SetCookie implements engine.CookieManager. An unusable URL fails the
// operation through done rather than rejecting it.
func (s *cookieStore) SetCookie(rawURL string, c engine.Cookie, done func(success bool)) bool {
	ok := s.setCookie(rawURL, c)
	if done == nil {
		return true
	}
	return s.post(func() { done(ok) })
}

func (s *cookieStore) setCookie(rawURL string, c engine.Cookie) bool {
	u, err := parseCookieURL(rawURL)
	if err != nil || c.Name == "" {
		return false
	}
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
	if hc.Path == "" {
		hc.Path = "/"
	}
	if !isValidCookieValue(hc.Value) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember(u)
	s.jar.SetCookies(u, []*http.Cookie{hc})
	// The jar silently drops cookies whose domain does not match the URL.
	return hasCookie(s.jar.Cookies(cookieProbe(u, hc)), hc)
}

// cookieProbe returns a URL under which hc would be sent.
func cookieProbe(u *url.URL, hc *http.Cookie) *url.URL {
	probe := *u
	probe.Scheme = "https"
	probe.Path = hc.Path
	if hc.Domain != "" {
		probe.Host = trimDot(hc.Domain)
	}
	return &probe
}

func trimDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

func hasCookie(cookies []*http.Cookie, want *http.Cookie) bool {
	for _, c := range cookies {
		if c.Name == want.Name && c.Value == want.Value {
			return true
		}
	}
	return false
}

func isValidCookieValue(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b < 0x20 || b == 0x7f || b == '"' || b == ';' || b == '\\' {
			return false
		}
	}
	return true
}

// DeleteCookies implements engine.CookieManager. Empty url and name remove
// every cookie.
func (s *cookieStore) DeleteCookies(rawURL, name string, done func(numDeleted int)) bool {
	var n int
	if rawURL == "" && name == "" {
		n = s.clear()
	} else {
		u, err := parseCookieURL(rawURL)
		if err != nil {
			return false
		}
		n = s.expire(u, name)
	}
	if done == nil {
		return true
	}
	return s.post(func() { done(n) })
}

func (s *cookieStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.seen {
		n += len(s.jar.Cookies(u))
	}
	s.jar = newJar()
	s.seen = make(map[string]*url.URL)
	return n
}

func (s *cookieStore) expire(u *url.URL, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := *u
	probe.Scheme = "https"
	var gone []*http.Cookie
	for _, c := range s.jar.Cookies(&probe) {
		if name == "" || c.Name == name {
			gone = append(gone, &http.Cookie{
				Name:    c.Name,
				Path:    "/",
				Expires: time.Unix(1, 0),
				MaxAge:  -1,
			})
		}
	}
	if len(gone) > 0 {
		s.jar.SetCookies(&probe, gone)
	}
	return len(gone)
}
