package fedora

import "time"

// ObjectBuilder assembles a new digital object for ingest.
type ObjectBuilder struct {
	obj  *DigitalObject
	rels *Relations
}

// NewObjectBuilder starts an active object with a model and label.
func NewObjectBuilder(pid, model, label string) *ObjectBuilder {
	b := &ObjectBuilder{
		obj:  &DigitalObject{Version: "1.1", PID: pid},
		rels: &Relations{PID: pid},
	}
	b.obj.SetProperty(PropState, "Active")
	b.obj.SetProperty(PropLabel, label)
	if model != "" {
		b.rels.SetModel(model)
	}
	return b
}

// Owner sets the owner id.
func (b *ObjectBuilder) Owner(owner string) *ObjectBuilder {
	b.obj.SetProperty(PropOwner, owner)
	return b
}

// Created stamps the creation and modification dates.
func (b *ObjectBuilder) Created(t time.Time) *ObjectBuilder {
	b.obj.SetProperty(PropCreated, FormatTime(t))
	b.obj.SetProperty(PropLastModified, FormatTime(t))
	return b
}

// Members sets the ordered child list.
func (b *ObjectBuilder) Members(pids ...string) *ObjectBuilder {
	b.rels.SetMembers(pids)
	return b
}

// Relation appends an arbitrary resource statement.
func (b *ObjectBuilder) Relation(space, local, resource string) *ObjectBuilder {
	b.rels.Statements = append(b.rels.Statements, Relation{Space: space, Local: local, Resource: resource})
	return b
}

// Literal sets a literal statement.
func (b *ObjectBuilder) Literal(space, local, value string) *ObjectBuilder {
	b.rels.SetLiteral(space, local, value)
	return b
}

// XML adds an inline XML datastream.
func (b *ObjectBuilder) XML(id, label, formatURI string, data []byte) *ObjectBuilder {
	return b.stream(XMLProfile(id, label, formatURI), data)
}

// Managed adds a managed datastream carried as base64 until ingest.
func (b *ObjectBuilder) Managed(id, label, mimeType string, data []byte) *ObjectBuilder {
	return b.stream(ManagedProfile(id, label, mimeType), data)
}

func (b *ObjectBuilder) stream(p DatastreamProfile, data []byte) *ObjectBuilder {
	b.obj.RemoveDatastream(p.ID)
	v := DatastreamVersion{ID: p.ID + ".0", Label: p.Label, MimeType: p.MimeType, FormatURI: p.FormatURI}
	v.SetContent(p.ControlGroup, data)
	b.obj.Datastreams = append(b.obj.Datastreams, Datastream{
		ID: p.ID, State: "A", ControlGroup: p.ControlGroup, Versionable: false,
		Versions: []DatastreamVersion{v},
	})
	return b
}

// Build returns the object with its RELS-EXT.
func (b *ObjectBuilder) Build() *DigitalObject {
	b.stream(XMLProfile(RelsExt, "RDF Statements about this object", RelsExtFormatURI), b.rels.Marshal())
	return b.obj
}

// FOXML renders the built object.
func (b *ObjectBuilder) FOXML() ([]byte, error) {
	return b.Build().Marshal()
}
