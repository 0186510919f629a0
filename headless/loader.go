package headless

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"golang.org/x/net/html/charset"

	"github.com/gogpu/webview/engine"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// loadError is a failed load with a network error code.
type loadError struct {
	code engine.ErrorCode
	url  string
	err  error
}

func (e *loadError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("headless: %s: %s: %v", errorText(e.code), e.url, e.err)
	}
	return fmt.Sprintf("headless: %s: %s", errorText(e.code), e.url)
}

func (e *loadError) Unwrap() error { return e.err }

// errorText returns the short name reported to OnLoadError.
func errorText(code engine.ErrorCode) string {
	switch code {
	case engine.ErrAborted:
		return "net::ERR_ABORTED"
	case engine.ErrInvalidArgument:
		return "net::ERR_INVALID_ARGUMENT"
	case engine.ErrFileNotFound:
		return "net::ERR_FILE_NOT_FOUND"
	case engine.ErrTimedOut:
		return "net::ERR_TIMED_OUT"
	case engine.ErrConnectionRefused:
		return "net::ERR_CONNECTION_REFUSED"
	case engine.ErrNameNotResolved:
		return "net::ERR_NAME_NOT_RESOLVED"
	case engine.ErrInvalidURL:
		return "net::ERR_INVALID_URL"
	case engine.ErrUnknownURLScheme:
		return "net::ERR_UNKNOWN_URL_SCHEME"
	case engine.ErrInvalidResponse:
		return "net::ERR_INVALID_RESPONSE"
	default:
		return "net::ERR_FAILED"
	}
}

// classify maps a transport error to a network error code.
func classify(err error) engine.ErrorCode {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return engine.ErrAborted
	case errors.Is(err, context.DeadlineExceeded):
		return engine.ErrTimedOut
	case errors.As(err, &dnsErr):
		return engine.ErrNameNotResolved
	case errors.Is(err, syscall.ECONNREFUSED):
		return engine.ErrConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return engine.ErrTimedOut
	default:
		return engine.ErrFailed
	}
}

// loader fetches documents. It is safe for concurrent use.
type loader struct {
	client    *http.Client
	userAgent string
}

// load fetches req and parses the result. Errors are *loadError.
func (l *loader) load(ctx context.Context, req *engine.Request) (*document, error) {
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" {
		return nil, &loadError{code: engine.ErrInvalidURL, url: req.URL, err: err}
	}

	switch strings.ToLower(u.Scheme) {
	case "about":
		return loadAbout(u)
	case "data":
		return loadData(req.URL)
	case "file":
		return loadFile(u)
	case "http", "https":
		return l.loadHTTP(ctx, req, u)
	default:
		return nil, &loadError{code: engine.ErrUnknownURLScheme, url: req.URL}
	}
}

func loadAbout(u *url.URL) (*document, error) {
	if u.Opaque != "blank" {
		return nil, &loadError{code: engine.ErrInvalidURL, url: u.String()}
	}
	return &document{url: "about:blank", mime: "text/html"}, nil
}

// loadData decodes a data: URL of the form data:[<mediatype>][;base64],<data>.
func loadData(raw string) (*document, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, &loadError{code: engine.ErrInvalidURL, url: raw}
	}

	var body []byte
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		meta = meta[:len(meta)-len(";base64")]
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			b, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, &loadError{code: engine.ErrInvalidURL, url: raw, err: err}
		}
		body = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, &loadError{code: engine.ErrInvalidURL, url: raw, err: err}
		}
		body = []byte(s)
	}
	if meta == "" {
		meta = "text/plain;charset=US-ASCII"
	}

	doc, err := decodeBody(bytes.NewReader(body), meta, nil)
	if err != nil {
		return nil, &loadError{code: engine.ErrInvalidResponse, url: raw, err: err}
	}
	doc.url = raw
	doc.status = http.StatusOK
	return doc, nil
}

func loadFile(u *url.URL) (*document, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &loadError{code: engine.ErrFileNotFound, url: u.String(), err: err}
		}
		return nil, &loadError{code: engine.ErrFailed, url: u.String(), err: err}
	}
	defer f.Close()

	contentType := mime.TypeByExtension(pathExt(u.Path))
	body := newLimitedBody(f, maxBodySize)
	doc, err := decodeBody(body, contentType, u)
	if err != nil {
		return nil, &loadError{code: engine.ErrInvalidResponse, url: u.String(), err: err}
	}
	doc.url = u.String()
	doc.truncated = body.truncated
	return doc, nil
}

func pathExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 && !strings.Contains(p[i:], "/") {
		return p[i:]
	}
	return ""
}

func (l *loader) loadHTTP(ctx context.Context, req *engine.Request, u *url.URL) (*document, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.PostData) > 0 {
		body = bytes.NewReader(req.PostData)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &loadError{code: engine.ErrInvalidArgument, url: req.URL, err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(hreq)
	if err != nil {
		return nil, &loadError{code: classify(err), url: req.URL, err: err}
	}
	defer resp.Body.Close()

	final := resp.Request.URL
	respBody := newLimitedBody(resp.Body, maxBodySize)
	doc, err := decodeBody(respBody, resp.Header.Get("Content-Type"), final)
	if err != nil {
		return nil, &loadError{code: engine.ErrInvalidResponse, url: req.URL, err: err}
	}
	doc.url = final.String()
	doc.status = resp.StatusCode
	doc.truncated = respBody.truncated
	return doc, nil
}

// limitedBody reads at most limit bytes from r and records whether r had
// more.
type limitedBody struct {
	r         io.Reader
	left      int64
	probed    bool
	truncated bool
}

func newLimitedBody(r io.Reader, limit int64) *limitedBody {
	return &limitedBody{r: r, left: limit}
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.left <= 0 {
		if !b.probed {
			b.probed = true
			var one [1]byte
			n, _ := io.ReadFull(b.r, one[:])
			b.truncated = n > 0
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}

// utf8Reader converts body to UTF-8. An empty body yields an empty reader.
func utf8Reader(body io.Reader, contentType string) (io.Reader, error) {
	r, err := charset.NewReader(body, contentType)
	if errors.Is(err, io.EOF) {
		return strings.NewReader(""), nil
	}
	return r, err
}

// decodeBody converts body to UTF-8 according to contentType and parses
// it. Media types other than HTML and text are summarized.
func decodeBody(body io.Reader, contentType string, base *url.URL) (*document, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/html"
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		r, err := utf8Reader(body, contentType)
		if err != nil {
			return nil, err
		}
		return parseHTML(r, base)
	case strings.HasPrefix(mediaType, "text/") || mediaType == "application/json":
		r, err := utf8Reader(body, contentType)
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		doc := plainDocument(string(b))
		doc.mime = mediaType
		return doc, nil
	default:
		n, err := io.Copy(io.Discard, body)
		if err != nil {
			return nil, err
		}
		return &document{
			mime:   mediaType,
			blocks: []block{{kind: blockText, text: fmt.Sprintf("[%s, %d bytes]", mediaType, n)}},
		}, nil
	}
}
