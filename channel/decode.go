package channel

import (
	"encoding/base64"
	"math"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/gogpu/webview"
)

// decoder reads typed method arguments from a JSON object. The first
// failure is kept in err and later reads become no-ops, so a handler reads
// every argument and checks err once.
type decoder struct {
	args gjson.Result
	err  error
}

func newDecoder(args gjson.Result) *decoder {
	d := &decoder{args: args}
	if !args.IsObject() {
		d.err = webview.NewError(webview.CodeBadArguments, "The arguments must be Map")
	}
	return d
}

func (d *decoder) fail(key, format string, a ...any) {
	if d.err == nil {
		d.err = webview.NewError(webview.CodeBadArguments, key+" "+format, a...)
	}
}

func (d *decoder) lookup(key string) (gjson.Result, bool) {
	if d.err != nil {
		return gjson.Result{}, false
	}
	return d.args.Get(key), true
}

// parseInt accepts integral JSON numbers that fit in an int64.
func parseInt(v gjson.Result) (int64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	return n, err == nil
}

func (d *decoder) int64(key string) int64 {
	v, ok := d.lookup(key)
	if !ok {
		return 0
	}
	n, ok := parseInt(v)
	if !ok {
		d.fail(key, "must be int")
		return 0
	}
	return n
}

// ranged reads an integer and checks it against [lo, hi].
func (d *decoder) ranged(key string, lo, hi int64, loName, hiName string) int64 {
	n := d.int64(key)
	if d.err != nil {
		return 0
	}
	if n < lo || n > hi {
		if loName != "" {
			d.fail(key, "must be in the range of %d (%s) to %d (%s)", lo, loName, hi, hiName)
		} else {
			d.fail(key, "must be in the range of %d to %d (%s)", lo, hi, hiName)
		}
		return 0
	}
	return n
}

func (d *decoder) int32(key string) int {
	return int(d.ranged(key, math.MinInt32, math.MaxInt32, "INT_MIN", "INT_MAX"))
}

func (d *decoder) uint32(key string) uint32 {
	return uint32(d.ranged(key, 0, math.MaxUint32, "", "UINT32_MAX"))
}

func (d *decoder) char16(key string) uint16 {
	return uint16(d.ranged(key, 0, math.MaxUint16, "", "USHRT_MAX"))
}

func (d *decoder) instance() webview.InstanceID {
	return webview.InstanceID(d.int64("webviewId"))
}

func (d *decoder) string(key string) string {
	v, ok := d.lookup(key)
	if !ok {
		return ""
	}
	if v.Type != gjson.String {
		d.fail(key, "must be string")
		return ""
	}
	return v.Str
}

func (d *decoder) bool(key string) bool {
	v, ok := d.lookup(key)
	if !ok {
		return false
	}
	switch v.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	d.fail(key, "must be bool")
	return false
}

// bytes accepts a base64 string or an array of integers in [0, 255].
func (d *decoder) bytes(key string) []byte {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	switch {
	case v.Type == gjson.String:
		b, err := base64.StdEncoding.DecodeString(v.Str)
		if err != nil {
			d.fail(key, "must be Uint8List")
			return nil
		}
		return b
	case v.IsArray():
		items := v.Array()
		b := make([]byte, 0, len(items))
		for _, item := range items {
			n, ok := parseInt(item)
			if !ok || n < 0 || n > math.MaxUint8 {
				d.fail(key, "must be Uint8List")
				return nil
			}
			b = append(b, byte(n))
		}
		return b
	}
	d.fail(key, "must be Uint8List")
	return nil
}

func (d *decoder) strings(key string) []string {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	if !v.IsArray() {
		d.fail(key, "must be List<String>")
		return nil
	}
	items := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			d.fail(key, "must be List<String>")
			return nil
		}
		out = append(out, item.Str)
	}
	return out
}

// header reads a string to string map into canonical header keys.
func (d *decoder) header(key string) http.Header {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	if !v.IsObject() {
		d.fail(key, "must be Map<String,String>")
		return nil
	}
	h := http.Header{}
	v.ForEach(func(k, val gjson.Result) bool {
		if val.Type != gjson.String {
			d.fail(key, "must be Map<String,String>")
			return false
		}
		h.Add(k.Str, val.Str)
		return true
	})
	if d.err != nil {
		return nil
	}
	return h
}
