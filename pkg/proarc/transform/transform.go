// Package transform converts between the bibliographic XML dialects used by
// the pipeline (OAI-MARC, MARC21slim, MODS 3, Dublin Core) and derives
// display strings from MODS.
package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// Format names one transformation.
type Format int

const (
	AlephOaiMarcFix Format = iota + 1
	OaimarcAsMarc21slim
	MarcxmlAsMods3
	ModsAsHtml
	ModsAsTitle
	ModsAsFedoraLabel
	ModsAsDublinCore
)

var formatNames = map[Format]string{
	AlephOaiMarcFix:     "AlephOaiMarcFix",
	OaimarcAsMarc21slim: "OaimarcAsMarc21slim",
	MarcxmlAsMods3:      "MarcxmlAsMods3",
	ModsAsHtml:          "ModsAsHtml",
	ModsAsTitle:         "ModsAsTitle",
	ModsAsFedoraLabel:   "ModsAsFedoraLabel",
	ModsAsDublinCore:    "ModsAsDublinCore",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Parameter names.
const (
	ParamModel  = "MODEL"
	ParamLocale = "locale"
)

// Params alter the output of some formats.
type Params map[string]string

func (p Params) locale() string {
	if l := p[ParamLocale]; l != "" {
		return l
	}
	return "cs"
}

type transformFunc func(src []byte, params Params) ([]byte, error)

// Engine is a registry of transformations. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	transforms map[Format]transformFunc
}

// NewEngine registers every Format.
func NewEngine() *Engine {
	return &Engine{transforms: map[Format]transformFunc{
		AlephOaiMarcFix:     alephOaiMarcFix,
		OaimarcAsMarc21slim: oaimarcAsMarc21slim,
		MarcxmlAsMods3:      marcxmlAsMods3,
		ModsAsHtml:          modsAsHTML,
		ModsAsTitle:         modsAsTitle,
		ModsAsFedoraLabel:   modsAsFedoraLabel,
		ModsAsDublinCore:    modsAsDublinCore,
	}}
}

// Transform applies f to src. An unregistered format is a programming error
// and panics. Malformed input yields a transform error.
func (e *Engine) Transform(src []byte, f Format, params Params) ([]byte, error) {
	fn, ok := e.transforms[f]
	if !ok {
		panic(fmt.Sprintf("transform: unknown format %s", f))
	}
	if params == nil {
		params = Params{}
	}
	out, err := fn(src, params)
	if err != nil {
		if exception.KindOf(err) == exception.KindTransform {
			return nil, err
		}
		return nil, exception.NewTransformError(f.String(), "transformation failed", err)
	}
	return out, nil
}

// Chain applies formats in order, feeding each output to the next one.
func (e *Engine) Chain(src []byte, params Params, formats ...Format) ([]byte, error) {
	out := src
	for _, f := range formats {
		var err error
		if out, err = e.Transform(out, f, params); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// rootName returns the name of the document element.
func rootName(data []byte) (xml.Name, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.Name{}, fmt.Errorf("no root element")
		}
		if err != nil {
			return xml.Name{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name, nil
		}
	}
}

// encode renders v with an XML declaration and two space indentation.
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func malformed(f Format, err error) error {
	return exception.NewTransformError(f.String(), "malformed input XML", err)
}
