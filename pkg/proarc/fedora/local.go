package fedora

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const (
	objectStoreDir     = "objects"
	datastreamStoreDir = "datastreams"
	lockSuffix         = ".lock"
	tmpSuffix          = ".tmp"
	lockRetryDelay     = 20 * time.Millisecond
)

// LocalStorage keeps FOXML documents in an Akubra hash-path layout.
// Managed datastream content lives in a sibling store and is referenced
// from FOXML by INTERNAL_ID.
type LocalStorage struct {
	root  string
	depth int
	now   func() time.Time
}

// NewLocalStorage opens (and creates) a store rooted at root.
func NewLocalStorage(root string, depth int) (*LocalStorage, error) {
	if root == "" {
		return nil, exception.NewConfigurationError("fedora", "akubra root is empty", nil)
	}
	if depth < 0 {
		depth = 0
	}
	for _, dir := range []string{objectStoreDir, datastreamStoreDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, exception.NewConfigurationError("fedora", "cannot create akubra store", err)
		}
	}
	return &LocalStorage{root: root, depth: depth, now: time.Now}, nil
}

// hashPath maps an id to <base>/<h0h1>/<h2h3>/.../<escaped id>.
func (s *LocalStorage) hashPath(base, id string) string {
	sum := md5.Sum([]byte(id))
	digest := hex.EncodeToString(sum[:])
	parts := []string{s.root, base}
	for i := 0; i < s.depth && 2*i+2 <= len(digest); i++ {
		parts = append(parts, digest[2*i:2*i+2])
	}
	parts = append(parts, url.QueryEscape(id))
	return filepath.Join(parts...)
}

func (s *LocalStorage) objectPath(pid string) string {
	return s.hashPath(objectStoreDir, ToURI(pid))
}

func (s *LocalStorage) contentPath(ref string) string {
	return s.hashPath(datastreamStoreDir, ToURI(ref))
}

func (s *LocalStorage) lock(ctx context.Context, pid string) (*flock.Flock, error) {
	path := s.objectPath(pid)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, exception.NewDigitalObjectError(pid, "cannot create object directory", err)
	}
	fl := flock.New(path + lockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, exception.NewDigitalObjectError(pid, "cannot lock object", err)
	}
	if !locked {
		return nil, exception.NewDigitalObjectError(pid, "object lock not acquired", ctx.Err())
	}
	return fl, nil
}

func (s *LocalStorage) read(pid string) (*DigitalObject, error) {
	data, err := os.ReadFile(s.objectPath(pid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewNotFoundError(pid, "")
		}
		return nil, exception.NewDigitalObjectError(pid, "cannot read object", err)
	}
	obj, err := ParseFOXML(data)
	if err != nil {
		return nil, exception.NewDigitalObjectError(pid, "unreadable FOXML", err)
	}
	return obj, nil
}

func (s *LocalStorage) write(obj *DigitalObject) error {
	data, err := obj.Marshal()
	if err != nil {
		return exception.NewDigitalObjectError(obj.PID, "cannot encode FOXML", err)
	}
	return writeAtomic(s.objectPath(obj.PID), data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// timestamp returns a millisecond timestamp strictly after prev.
func (s *LocalStorage) timestamp(prev time.Time) time.Time {
	t := s.now().UTC().Truncate(time.Millisecond)
	if !t.After(prev) {
		t = prev.Add(time.Millisecond)
	}
	return t
}

// Find implements Storage.
func (s *LocalStorage) Find(ctx context.Context, pid string) (RepositoryObject, error) {
	ok, err := s.Exists(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, exception.NewNotFoundError(pid, "")
	}
	return &localObject{store: s, pid: pid}, nil
}

// Exists implements Storage.
func (s *LocalStorage) Exists(_ context.Context, pid string) (bool, error) {
	_, err := os.Stat(s.objectPath(pid))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, exception.NewDigitalObjectError(pid, "cannot stat object", err)
}

// Ingest implements Storage. Inline binary content of managed datastreams
// is moved to the content store.
func (s *LocalStorage) Ingest(ctx context.Context, foxml []byte, owner, message string) error {
	obj, err := ParseFOXML(foxml)
	if err != nil {
		return exception.NewDigitalObjectError("", "cannot ingest", err)
	}
	fl, err := s.lock(ctx, obj.PID)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	if _, err := os.Stat(s.objectPath(obj.PID)); err == nil {
		return exception.NewDigitalObjectError(obj.PID, "object already exists", nil)
	}
	now := s.timestamp(time.Time{})
	if owner != "" {
		obj.SetProperty(PropOwner, owner)
	}
	if obj.Property(PropCreated) == "" {
		obj.SetProperty(PropCreated, FormatTime(now))
	}
	obj.SetProperty(PropLastModified, FormatTime(now))
	for i := range obj.Datastreams {
		ds := &obj.Datastreams[i]
		for j := range ds.Versions {
			v := &ds.Versions[j]
			if v.Created == "" {
				v.Created = FormatTime(now)
			}
			if ds.ControlGroup != ControlManaged || v.BinaryContent == nil {
				continue
			}
			data, _, err := v.InlineContent()
			if err != nil {
				return exception.NewDigitalObjectError(obj.PID, "invalid base64 content of "+ds.ID, err)
			}
			if err := s.storeContent(obj.PID, v, data); err != nil {
				return err
			}
		}
	}
	if err := s.write(obj); err != nil {
		return err
	}
	logger.WithFields(map[string]interface{}{"pid": obj.PID, "owner": owner}).Debugf("Ingested object: %s", message)
	return nil
}

func (s *LocalStorage) storeContent(pid string, v *DatastreamVersion, data []byte) error {
	ref := fmt.Sprintf("%s+%s", pid, v.ID)
	if err := writeAtomic(s.contentPath(ref), data); err != nil {
		return exception.NewDigitalObjectError(pid, "cannot store content of "+v.ID, err)
	}
	v.XMLContent, v.BinaryContent = nil, nil
	v.ContentLocation = &ContentLocation{Type: LocationInternal, Ref: ref}
	v.Size = int64(len(data))
	return nil
}

// Referrers implements Storage by scanning every stored object, so each call
// costs O(objects). The store may be shared with other processes, which rules
// out an in-process reverse index; callers that ask repeatedly cache results
// per traversal.
func (s *LocalStorage) Referrers(ctx context.Context, pid string) ([]string, error) {
	var out []string
	base := filepath.Join(s.root, objectStoreDir)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, lockSuffix) || strings.HasSuffix(name, tmpSuffix) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		obj, err := ParseFOXML(data)
		if err != nil {
			logger.Warnf("Skipping unreadable object file %s: %v", path, err)
			return nil
		}
		ds := obj.Datastream(RelsExt)
		if ds == nil || ds.Latest() == nil {
			return nil
		}
		content, _, err := ds.Latest().InlineContent()
		if err != nil {
			return nil
		}
		rels, err := ParseRelations(obj.PID, content)
		if err != nil {
			return nil
		}
		for _, m := range rels.Members() {
			if m == pid {
				out = append(out, obj.PID)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewDigitalObjectError(pid, "cannot search referrers", err)
	}
	sort.Strings(out)
	return out, nil
}

type localObject struct {
	store *LocalStorage
	pid   string
}

func (o *localObject) PID() string { return o.pid }

func (o *localObject) FOXML(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(o.store.objectPath(o.pid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.NewNotFoundError(o.pid, "")
		}
		return nil, exception.NewDigitalObjectError(o.pid, "cannot read object", err)
	}
	return data, nil
}

func (o *localObject) Datastreams(_ context.Context) ([]DatastreamProfile, error) {
	obj, err := o.store.read(o.pid)
	if err != nil {
		return nil, err
	}
	return obj.Profiles(), nil
}

func (o *localObject) Editor(profile DatastreamProfile) StreamEditor {
	return &localEditor{obj: o, profile: profile}
}

type localEditor struct {
	obj          *localObject
	profile      DatastreamProfile
	lastModified time.Time
}

func (e *localEditor) PID() string                { return e.obj.pid }
func (e *localEditor) Profile() DatastreamProfile { return e.profile }
func (e *localEditor) LastModified() time.Time    { return e.lastModified }

func (e *localEditor) Read(_ context.Context) ([]byte, error) {
	obj, err := e.obj.store.read(e.obj.pid)
	if err != nil {
		return nil, err
	}
	ds := obj.Datastream(e.profile.ID)
	if ds == nil || !ds.Active() || ds.Latest() == nil {
		e.lastModified = time.Time{}
		return nil, exception.NewNotFoundError(e.obj.pid, e.profile.ID)
	}
	v := ds.Latest()
	e.lastModified, _ = ParseTime(v.Created)
	e.profile = ds.Profile()
	data, ok, err := v.InlineContent()
	if err != nil {
		return nil, exception.NewDigitalObjectError(e.obj.pid, "corrupted content of "+ds.ID, err)
	}
	if ok {
		return data, nil
	}
	if v.ContentLocation == nil || v.ContentLocation.Type != LocationInternal {
		return nil, exception.NewDigitalObjectError(e.obj.pid, "unsupported content location of "+ds.ID, nil)
	}
	data, err = os.ReadFile(e.obj.store.contentPath(v.ContentLocation.Ref))
	if err != nil {
		return nil, exception.NewDigitalObjectError(e.obj.pid, "cannot read content of "+ds.ID, err)
	}
	return data, nil
}

func (e *localEditor) Write(ctx context.Context, data []byte, lastModified time.Time, message string) error {
	store := e.obj.store
	fl, err := store.lock(ctx, e.obj.pid)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	obj, err := store.read(e.obj.pid)
	if err != nil {
		return err
	}
	var current time.Time
	ds := obj.Datastream(e.profile.ID)
	if ds != nil && ds.Latest() != nil {
		current, _ = ParseTime(ds.Latest().Created)
	}
	if !current.Equal(lastModified.UTC().Truncate(time.Millisecond)) {
		return exception.NewConcurrentModificationError(e.obj.pid, e.profile.ID,
			fmt.Errorf("stored %s, expected %s", FormatTime(current), FormatTime(lastModified)))
	}

	if ds == nil {
		group := e.profile.ControlGroup
		if group == "" {
			group = ControlInline
		}
		obj.Datastreams = append(obj.Datastreams, Datastream{ID: e.profile.ID, State: "A", ControlGroup: group})
		ds = &obj.Datastreams[len(obj.Datastreams)-1]
	}
	created := store.timestamp(current)
	v := DatastreamVersion{
		ID:        fmt.Sprintf("%s.%d", ds.ID, len(ds.Versions)),
		Label:     e.profile.Label,
		Created:   FormatTime(created),
		MimeType:  e.profile.MimeType,
		FormatURI: e.profile.FormatURI,
	}
	if prev := ds.Latest(); prev != nil {
		if v.Label == "" {
			v.Label = prev.Label
		}
		if v.MimeType == "" {
			v.MimeType = prev.MimeType
		}
		if v.FormatURI == "" {
			v.FormatURI = prev.FormatURI
		}
	}
	switch ds.ControlGroup {
	case ControlManaged:
		if err := store.storeContent(e.obj.pid, &v, data); err != nil {
			return err
		}
	case ControlInline:
		v.SetContent(ControlInline, data)
	default:
		return exception.NewDigitalObjectError(e.obj.pid, "cannot write control group "+ds.ControlGroup, nil)
	}
	if ds.Versionable {
		ds.Versions = append(ds.Versions, v)
	} else {
		ds.Versions = []DatastreamVersion{v}
	}
	obj.SetProperty(PropLastModified, FormatTime(created))
	if err := store.write(obj); err != nil {
		return err
	}
	e.lastModified = created
	logger.WithFields(map[string]interface{}{"pid": e.obj.pid, "ds": ds.ID}).Debugf("Datastream written: %s", message)
	return nil
}
