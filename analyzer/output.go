package main

import (
	"compress/gzip"
	"io"

	"github.com/goccy/go-json"
)

// encodeJSON serializes output as one line of JSON to w.
//
// If compress is true, the output is gzip-compressed.
func encodeJSON(w io.Writer, output any, compress bool) error {
	if compress {
		return writeGzipJSON(w, output)
	}
	return newEncoder(w).Encode(output)
}

// writeGzipJSON writes gzip-compressed JSON to w.
func writeGzipJSON(w io.Writer, output any) error {
	gzWriter := gzip.NewWriter(w)

	if err := newEncoder(gzWriter).Encode(output); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// newEncoder returns a compact encoder that leaves HTML characters of
// template text unescaped.
func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "") // disable indent (reduces size by > 2x)
	enc.SetEscapeHTML(false)
	return enc
}
