package fedora

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFOXML = `<?xml version="1.0" encoding="UTF-8"?>
<foxml:digitalObject xmlns:foxml="info:fedora/fedora-system:def/foxml#" VERSION="1.1" PID="uuid:1">
  <foxml:objectProperties>
    <foxml:property NAME="info:fedora/fedora-system:def/model#state" VALUE="Active"/>
    <foxml:property NAME="info:fedora/fedora-system:def/model#label" VALUE="Page 1"/>
  </foxml:objectProperties>
  <foxml:datastream ID="RELS-EXT" STATE="A" CONTROL_GROUP="X" VERSIONABLE="false">
    <foxml:datastreamVersion ID="RELS-EXT.0" LABEL="" CREATED="2020-01-01T10:00:00.000Z" MIMETYPE="text/xml">
      <foxml:xmlContent>
        <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
          <rdf:Description rdf:about="info:fedora/uuid:1">
            <hasModel xmlns="info:fedora/fedora-system:def/model#" rdf:resource="info:fedora/model:page"/>
          </rdf:Description>
        </rdf:RDF>
      </foxml:xmlContent>
    </foxml:datastreamVersion>
  </foxml:datastream>
  <foxml:datastream ID="THUMBNAIL" STATE="A" CONTROL_GROUP="M" VERSIONABLE="false">
    <foxml:datastreamVersion ID="THUMBNAIL.0" LABEL="thumb" CREATED="2020-01-01T10:00:00.000Z" MIMETYPE="image/jpeg">
      <foxml:binaryContent>aGVs
bG8=</foxml:binaryContent>
    </foxml:datastreamVersion>
  </foxml:datastream>
  <foxml:datastream ID="OLD" STATE="D" CONTROL_GROUP="X" VERSIONABLE="false">
    <foxml:datastreamVersion ID="OLD.0" LABEL="" MIMETYPE="text/xml"><foxml:xmlContent><x/></foxml:xmlContent></foxml:datastreamVersion>
  </foxml:datastream>
</foxml:digitalObject>`

func TestParseFOXML(t *testing.T) {
	obj, err := ParseFOXML([]byte(sampleFOXML))
	require.NoError(t, err)
	assert.Equal(t, "uuid:1", obj.PID)
	assert.Equal(t, "Page 1", obj.Label())

	profiles := obj.Profiles()
	require.Len(t, profiles, 2, "deleted datastreams are hidden")
	assert.Equal(t, "RELS-EXT", profiles[0].ID)
	assert.Equal(t, "THUMBNAIL", profiles[1].ID)
	assert.Equal(t, "image/jpeg", profiles[1].MimeType)

	data, ok, err := obj.Datastream(Thumbnail).Latest().InlineContent()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", string(data))

	rels, _, err := obj.Datastream(RelsExt).Latest().InlineContent()
	require.NoError(t, err)
	parsed, err := ParseRelations("uuid:1", rels)
	require.NoError(t, err)
	assert.Equal(t, "model:page", parsed.Model())
}

func TestFOXMLRoundTripKeepsInlineXML(t *testing.T) {
	obj, err := ParseFOXML([]byte(sampleFOXML))
	require.NoError(t, err)
	out, err := obj.Marshal()
	require.NoError(t, err)

	again, err := ParseFOXML(out)
	require.NoError(t, err)
	assert.Equal(t, obj.Profiles(), again.Profiles())
	a, _, _ := obj.Datastream(RelsExt).Latest().InlineContent()
	b, _, _ := again.Datastream(RelsExt).Latest().InlineContent()
	assert.Equal(t, string(a), string(b))
}

func TestParseFOXMLRejectsGarbage(t *testing.T) {
	_, err := ParseFOXML([]byte("<nope"))
	assert.Error(t, err)
	_, err = ParseFOXML([]byte(`<digitalObject xmlns="info:fedora/fedora-system:def/foxml#"/>`))
	assert.Error(t, err)
}

func TestTimeFormat(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 891234567, time.UTC)
	assert.Equal(t, "2021-03-04T05:06:07.891Z", FormatTime(ts))
	parsed, err := ParseTime("2021-03-04T05:06:07.891Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts.Truncate(time.Millisecond)))
	zero, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               "jpeg",
		"image/jp2":                "jp2",
		"text/plain; charset=utf8": "txt",
		"text/xml":                 "xml",
		"application/mods+xml":     "xml",
		"image/x-djvu":             "djvu",
		"garbage":                  "bin",
	}
	for mt, ext := range cases {
		assert.Equal(t, ext, ExtensionFor(mt), mt)
	}
	assert.Equal(t, "child1", UUID("uuid:child1"))
}
