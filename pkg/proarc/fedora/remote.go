package fedora

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// RemoteStorage talks to the Fedora 3 REST API.
type RemoteStorage struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewRemoteStorage creates a client for cfg.URL.
func NewRemoteStorage(cfg config.FedoraConfig) (*RemoteStorage, error) {
	if cfg.URL == "" {
		return nil, exception.NewConfigurationError("fedora", "fedora url is empty", nil)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteStorage{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (s *RemoteStorage) endpoint(path string, query url.Values) string {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func objectPath(pid string, elems ...string) string {
	p := "/objects/" + url.PathEscape(pid)
	for _, e := range elems {
		p += "/" + url.PathEscape(e)
	}
	return p
}

func (s *RemoteStorage) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(path, query), rd)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func statusError(pid, dsID, op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	switch status {
	case http.StatusNotFound:
		return exception.NewNotFoundError(pid, dsID)
	case http.StatusConflict:
		return exception.NewConcurrentModificationError(pid, dsID, fmt.Errorf("%s: %s", op, msg))
	}
	return exception.NewDigitalObjectError(pid, fmt.Sprintf("%s failed with HTTP %d: %s", op, status, msg), nil)
}

// Exists implements Storage.
func (s *RemoteStorage) Exists(ctx context.Context, pid string) (bool, error) {
	status, body, err := s.do(ctx, http.MethodGet, objectPath(pid), url.Values{"format": {"xml"}}, nil, "")
	if err != nil {
		return false, exception.NewDigitalObjectError(pid, "repository unreachable", err)
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, statusError(pid, "", "object profile", status, body)
}

// Find implements Storage.
func (s *RemoteStorage) Find(ctx context.Context, pid string) (RepositoryObject, error) {
	ok, err := s.Exists(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, exception.NewNotFoundError(pid, "")
	}
	return &remoteObject{store: s, pid: pid}, nil
}

// Ingest implements Storage.
func (s *RemoteStorage) Ingest(ctx context.Context, foxml []byte, owner, message string) error {
	obj, err := ParseFOXML(foxml)
	if err != nil {
		return exception.NewDigitalObjectError("", "cannot ingest", err)
	}
	q := url.Values{"format": {"info:fedora/fedora-system:FOXML-1.1"}, "logMessage": {message}}
	if owner != "" {
		q.Set("ownerId", owner)
	}
	status, body, err := s.do(ctx, http.MethodPost, objectPath(obj.PID), q, foxml, "text/xml")
	if err != nil {
		return exception.NewDigitalObjectError(obj.PID, "repository unreachable", err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return statusError(obj.PID, "", "ingest", status, body)
	}
	logger.WithField("pid", obj.PID).Debugf("Ingested object into Fedora.")
	return nil
}

// Referrers implements Storage with a SPARQL query to the resource index.
func (s *RemoteStorage) Referrers(ctx context.Context, pid string) ([]string, error) {
	query := fmt.Sprintf("SELECT ?s WHERE { ?s <%shasMember> <%s> . }", RelsExtNS, ToURI(pid))
	q := url.Values{
		"type": {"tuples"}, "lang": {"sparql"}, "format": {"CSV"},
		"flush": {"true"}, "query": {query},
	}
	status, body, err := s.do(ctx, http.MethodGet, "/risearch", q, nil, "")
	if err != nil {
		return nil, exception.NewDigitalObjectError(pid, "repository unreachable", err)
	}
	if status != http.StatusOK {
		return nil, statusError(pid, "", "risearch", status, body)
	}
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, exception.NewDigitalObjectError(pid, "invalid risearch response", err)
	}
	var out []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue // header
		}
		out = append(out, FromURI(row[0]))
	}
	sort.Strings(out)
	return out, nil
}

type remoteObject struct {
	store *RemoteStorage
	pid   string
}

func (o *remoteObject) PID() string { return o.pid }

func (o *remoteObject) FOXML(ctx context.Context) ([]byte, error) {
	status, body, err := o.store.do(ctx, http.MethodGet, objectPath(o.pid, "objectXML"), nil, nil, "")
	if err != nil {
		return nil, exception.NewDigitalObjectError(o.pid, "repository unreachable", err)
	}
	if status != http.StatusOK {
		return nil, statusError(o.pid, "", "objectXML", status, body)
	}
	return body, nil
}

type objectDatastreams struct {
	Datastreams []struct {
		ID       string `xml:"dsid,attr"`
		Label    string `xml:"label,attr"`
		MimeType string `xml:"mimeType,attr"`
	} `xml:"datastream"`
}

func (o *remoteObject) Datastreams(ctx context.Context) ([]DatastreamProfile, error) {
	status, body, err := o.store.do(ctx, http.MethodGet, objectPath(o.pid, "datastreams"), url.Values{"format": {"xml"}}, nil, "")
	if err != nil {
		return nil, exception.NewDigitalObjectError(o.pid, "repository unreachable", err)
	}
	if status != http.StatusOK {
		return nil, statusError(o.pid, "", "listDatastreams", status, body)
	}
	var list objectDatastreams
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, exception.NewDigitalObjectError(o.pid, "invalid datastream list", err)
	}
	out := make([]DatastreamProfile, 0, len(list.Datastreams))
	for _, d := range list.Datastreams {
		out = append(out, DatastreamProfile{ID: d.ID, Label: d.Label, MimeType: d.MimeType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (o *remoteObject) Editor(profile DatastreamProfile) StreamEditor {
	return &remoteEditor{obj: o, profile: profile}
}

type datastreamProfile struct {
	Label        string `xml:"dsLabel"`
	VersionID    string `xml:"dsVersionID"`
	CreateDate   string `xml:"dsCreateDate"`
	State        string `xml:"dsState"`
	MimeType     string `xml:"dsMIME"`
	FormatURI    string `xml:"dsFormatURI"`
	ControlGroup string `xml:"dsControlGroup"`
}

type remoteEditor struct {
	obj          *remoteObject
	profile      DatastreamProfile
	lastModified time.Time
}

func (e *remoteEditor) PID() string                { return e.obj.pid }
func (e *remoteEditor) Profile() DatastreamProfile { return e.profile }
func (e *remoteEditor) LastModified() time.Time    { return e.lastModified }

func (e *remoteEditor) applyProfile(body []byte) error {
	var p datastreamProfile
	if err := xml.Unmarshal(body, &p); err != nil {
		return exception.NewDigitalObjectError(e.obj.pid, "invalid datastream profile of "+e.profile.ID, err)
	}
	ts, err := ParseTime(p.CreateDate)
	if err != nil {
		return exception.NewDigitalObjectError(e.obj.pid, "invalid timestamp of "+e.profile.ID, err)
	}
	e.lastModified = ts
	e.profile.Label = p.Label
	e.profile.MimeType = p.MimeType
	e.profile.FormatURI = p.FormatURI
	e.profile.ControlGroup = p.ControlGroup
	e.profile.Version = p.VersionID
	return nil
}

// loadProfile reports false when the datastream does not exist.
func (e *remoteEditor) loadProfile(ctx context.Context) (bool, error) {
	status, body, err := e.obj.store.do(ctx, http.MethodGet, objectPath(e.obj.pid, "datastreams", e.profile.ID), url.Values{"format": {"xml"}}, nil, "")
	if err != nil {
		return false, exception.NewDigitalObjectError(e.obj.pid, "repository unreachable", err)
	}
	if status == http.StatusNotFound {
		e.lastModified = time.Time{}
		return false, nil
	}
	if status != http.StatusOK {
		return false, statusError(e.obj.pid, e.profile.ID, "datastream profile", status, body)
	}
	return true, e.applyProfile(body)
}

func (e *remoteEditor) Read(ctx context.Context) ([]byte, error) {
	exists, err := e.loadProfile(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, exception.NewNotFoundError(e.obj.pid, e.profile.ID)
	}
	status, body, err := e.obj.store.do(ctx, http.MethodGet, objectPath(e.obj.pid, "datastreams", e.profile.ID, "content"), nil, nil, "")
	if err != nil {
		return nil, exception.NewDigitalObjectError(e.obj.pid, "repository unreachable", err)
	}
	if status != http.StatusOK {
		return nil, statusError(e.obj.pid, e.profile.ID, "datastream content", status, body)
	}
	return body, nil
}

func (e *remoteEditor) Write(ctx context.Context, data []byte, lastModified time.Time, message string) error {
	q := url.Values{"logMessage": {message}, "format": {"xml"}}
	if e.profile.MimeType != "" {
		q.Set("mimeType", e.profile.MimeType)
	}
	if e.profile.Label != "" {
		q.Set("dsLabel", e.profile.Label)
	}
	if e.profile.FormatURI != "" {
		q.Set("formatURI", e.profile.FormatURI)
	}
	method := http.MethodPut
	if lastModified.IsZero() {
		exists, err := e.loadProfile(ctx)
		if err != nil {
			return err
		}
		if exists {
			return exception.NewConcurrentModificationError(e.obj.pid, e.profile.ID, fmt.Errorf("datastream already exists"))
		}
		method = http.MethodPost
		group := e.profile.ControlGroup
		if group == "" {
			group = ControlInline
		}
		q.Set("controlGroup", group)
	} else {
		q.Set("lastModifiedDate", FormatTime(lastModified))
	}
	contentType := e.profile.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	status, body, err := e.obj.store.do(ctx, method, objectPath(e.obj.pid, "datastreams", e.profile.ID), q, data, contentType)
	if err != nil {
		return exception.NewDigitalObjectError(e.obj.pid, "repository unreachable", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return statusError(e.obj.pid, e.profile.ID, "datastream write", status, body)
	}
	if err := e.applyProfile(body); err != nil {
		if _, err := e.loadProfile(ctx); err != nil {
			return err
		}
	}
	return nil
}
