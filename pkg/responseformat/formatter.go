package responseformat

import (
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Format names accepted in the format query parameter
const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
	FormatGeoJSON = "geojson"
	FormatPNG     = "png"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Requested returns the format named by the request's format query parameter,
// defaulting to JSON
func Requested(req *http.Request) string {
	switch f := req.URL.Query().Get("format"); f {
	case FormatMsgPack, FormatGeoJSON, FormatPNG:
		return f
	default:
		return FormatJSON
	}
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return f.WriteResponseStatus(w, req, 0, data)
}

// WriteResponseStatus is WriteResponse with an explicit status code. A zero
// status leaves the default 200.
func (f *Formatter) WriteResponseStatus(w http.ResponseWriter, req *http.Request, status int, data any) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if Requested(req) == FormatMsgPack {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, "application/json", status, data)
}

// WriteGeoJSON writes a GeoJSON object (typically an orb FeatureCollection)
func (f *Formatter) WriteGeoJSON(w http.ResponseWriter, data any) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	return f.writeJSON(w, "application/geo+json", 0, data)
}

// WritePNG encodes img as the response body
func (f *Formatter) WritePNG(w http.ResponseWriter, img image.Image) error {
	return f.WriteEncoded(w, "image/png", func(out io.Writer) error {
		return png.Encode(out, img)
	})
}

// WriteEncoded sets the headers for an uncached body of the given content
// type and lets encode write it
func (f *Formatter) WriteEncoded(w http.ResponseWriter, contentType string, encode func(io.Writer) error) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	return encode(w)
}

// WriteError writes {"error": msg} with the given status code. Errors are
// always JSON so clients can read them regardless of the requested format.
func (f *Formatter) WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (f *Formatter) writeJSON(w http.ResponseWriter, contentType string, status int, data any) error {
	w.Header().Set("Content-Type", contentType)
	if status != 0 {
		w.WriteHeader(status)
	}
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/x-msgpack")
	if status != 0 {
		w.WriteHeader(status)
	}
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
