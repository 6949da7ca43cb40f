package iq

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buger/jsonparser"
)

// DatatypeCF32 is the only SigMF datatype this package decodes.
const DatatypeCF32 = "cf32_le"

// MetaExt is the SigMF metadata file extension.
const MetaExt = ".sigmf-meta"

var ErrUnsupportedDatatype = errors.New("unsupported sample datatype")

// Meta is the subset of a SigMF metadata document used to render a recording.
type Meta struct {
	Datatype    string
	SampleRate  float64
	Description string
	Frequency   float64 // centre frequency of the first capture, 0 if absent
}

// ParseMeta reads SigMF metadata JSON.
func ParseMeta(data []byte) (Meta, error) {
	var meta Meta

	datatype, err := jsonparser.GetString(data, "global", "core:datatype")
	if err != nil {
		return meta, fmt.Errorf("sigmf: missing core:datatype: %v", err)
	}
	meta.Datatype = datatype
	if !strings.EqualFold(datatype, DatatypeCF32) {
		return meta, fmt.Errorf("%w: %s (want %s)", ErrUnsupportedDatatype, datatype, DatatypeCF32)
	}

	if rate, err := jsonparser.GetFloat(data, "global", "core:sample_rate"); err == nil {
		meta.SampleRate = rate
	} else if err != jsonparser.KeyPathNotFoundError {
		return meta, fmt.Errorf("sigmf: bad core:sample_rate: %v", err)
	}

	if desc, err := jsonparser.GetString(data, "global", "core:description"); err == nil {
		meta.Description = desc
	}

	if freq, err := jsonparser.GetFloat(data, "captures", "[0]", "core:frequency"); err == nil {
		meta.Frequency = freq
	}

	return meta, nil
}

// ReadMetaFor looks for the SigMF sidecar of a recording at path. It returns
// ok == false when there is none.
func ReadMetaFor(path string) (meta Meta, ok bool, err error) {
	base := strings.TrimSuffix(path, ".sigmf-data")
	candidates := []string{base + MetaExt}
	if dot := strings.LastIndex(base, "."); dot > strings.LastIndex(base, "/") {
		candidates = append(candidates, base[:dot]+MetaExt)
	}

	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err != nil {
			continue
		}
		meta, err := ParseMeta(data)
		return meta, true, err
	}
	return meta, false, nil
}

// MarshalMeta encodes meta as a minimal SigMF metadata document.
func MarshalMeta(meta Meta) ([]byte, error) {
	if meta.Datatype == "" {
		meta.Datatype = DatatypeCF32
	}

	doc := []byte(`{"global":{"core:version":"1.0.0"},"captures":[{"core:sample_start":0}],"annotations":[]}`)
	fields := []struct {
		value any
		keys  []string
	}{
		{meta.Datatype, []string{"global", "core:datatype"}},
		{meta.SampleRate, []string{"global", "core:sample_rate"}},
		{meta.Description, []string{"global", "core:description"}},
		{meta.Frequency, []string{"captures", "[0]", "core:frequency"}},
	}

	for _, f := range fields {
		// json.Marshal rejects NaN and ±Inf and escapes control characters
		raw, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("sigmf: encoding %s: %v", strings.Join(f.keys, "."), err)
		}
		if doc, err = jsonparser.Set(doc, raw, f.keys...); err != nil {
			return nil, fmt.Errorf("sigmf: setting %s: %v", strings.Join(f.keys, "."), err)
		}
	}
	return doc, nil
}

// WriteMetaFor writes the SigMF sidecar of the recording at path, next to
// it with the extension replaced, and returns the sidecar path.
func WriteMetaFor(path string, meta Meta) (string, error) {
	doc, err := MarshalMeta(meta)
	if err != nil {
		return "", err
	}

	metaPath := strings.TrimSuffix(path, filepath.Ext(path)) + MetaExt
	if err := os.WriteFile(metaPath, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write SigMF metadata: %v", err)
	}
	return metaPath, nil
}
