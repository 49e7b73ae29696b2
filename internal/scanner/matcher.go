// Package scanner finds stored assets that no content document refers to.
package scanner

import (
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/techelons/site/internal/models"
)

// Index is the set of asset IDs a scan is looking for.
type Index map[string]struct{}

// NewIndex builds an index over the given assets.
func NewIndex(assets []*models.Asset) Index {
	idx := make(Index, len(assets))
	for _, a := range assets {
		if a != nil && a.ID != "" {
			idx[a.ID] = struct{}{}
		}
	}
	return idx
}

// Has reports whether id is an indexed asset ID.
func (idx Index) Has(id string) bool {
	_, ok := idx[id]
	return ok
}

// ReferenceMatcher is one strategy for spotting asset references in a document.
type ReferenceMatcher interface {
	Name() string
	Description() string
	// Match returns the indexed IDs referenced by doc. Duplicates are allowed.
	Match(doc models.ContentDocument, idx Index) []string
}

// DefaultMatchers returns the built-in strategies in evaluation order.
func DefaultMatchers(rules Rules) []ReferenceMatcher {
	return []ReferenceMatcher{
		DeepMatcher{},
		NewKnownFieldMatcher(rules.Fields),
		NewURLMatcher(rules.URLMarkers),
		FullTextMatcher{},
	}
}

// DeepMatcher walks the whole document and matches any string value that
// equals an asset ID.
type DeepMatcher struct{}

func (DeepMatcher) Name() string { return "deep" }

func (DeepMatcher) Description() string {
	return "Walks every field and array element at any depth and matches string values equal to a file ID."
}

func (DeepMatcher) Match(doc models.ContentDocument, idx Index) []string {
	var found []string
	walk(doc.Body, func(_ string, s string) {
		if idx.Has(s) {
			found = append(found, s)
		}
	})
	return found
}

// KnownFieldMatcher inspects the values of fields commonly used to hold file
// references, at any depth.
type KnownFieldMatcher struct {
	fields map[string]struct{}
}

// NewKnownFieldMatcher creates a matcher for the given field names. Names are
// compared case-insensitively.
func NewKnownFieldMatcher(fields []string) *KnownFieldMatcher {
	m := &KnownFieldMatcher{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			m.fields[strings.ToLower(f)] = struct{}{}
		}
	}
	return m
}

func (m *KnownFieldMatcher) Name() string { return "knownFields" }

func (m *KnownFieldMatcher) Description() string {
	return "Checks fields such as image, bannerImage, fileId and attachments for a file ID, either as the whole value or as a path segment."
}

func (m *KnownFieldMatcher) Match(doc models.ContentDocument, idx Index) []string {
	var found []string
	walk(doc.Body, func(key string, s string) {
		if _, ok := m.fields[strings.ToLower(key)]; !ok {
			return
		}
		if idx.Has(s) {
			found = append(found, s)
			return
		}
		for _, seg := range segments(s) {
			if idx.Has(seg) {
				found = append(found, seg)
			}
		}
	})
	return found
}

// URLMatcher picks out file-serving URLs and compares their ID segment to
// the index.
type URLMatcher struct {
	markers []string
}

// NewURLMatcher creates a matcher that treats strings containing any marker
// as file URLs.
func NewURLMatcher(markers []string) *URLMatcher {
	m := &URLMatcher{}
	for _, mk := range markers {
		if mk = strings.TrimSpace(mk); mk != "" {
			m.markers = append(m.markers, mk)
		}
	}
	return m
}

func (m *URLMatcher) Name() string { return "url" }

func (m *URLMatcher) Description() string {
	return "Finds file-serving URLs such as /api/files/<id> in any string and extracts the ID segment."
}

func (m *URLMatcher) Match(doc models.ContentDocument, idx Index) []string {
	var found []string
	walk(doc.Body, func(_ string, s string) {
		for _, id := range m.candidates(s) {
			if idx.Has(id) {
				found = append(found, id)
			}
		}
	})
	return found
}

// candidates returns the segment after each marker and the trailing segment.
func (m *URLMatcher) candidates(s string) []string {
	var out []string
	for _, mk := range m.markers {
		rest := s
		for {
			i := strings.Index(rest, mk)
			if i < 0 {
				break
			}
			rest = rest[i+len(mk):]
			if seg := firstSegment(rest); seg != "" {
				out = append(out, seg)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	segs := segments(s)
	if len(segs) > 0 {
		out = append(out, segs[len(segs)-1])
	}
	return out
}

// FullTextMatcher serializes the document and looks for each ID as a
// substring. It catches IDs embedded in text such as markdown or HTML.
type FullTextMatcher struct{}

func (FullTextMatcher) Name() string { return "fullText" }

func (FullTextMatcher) Description() string {
	return "Serializes the whole document to JSON and searches it for every file ID as a substring."
}

func (FullTextMatcher) Match(doc models.ContentDocument, idx Index) []string {
	text := serialize(doc.Body)
	if text == "" {
		return nil
	}
	var found []string
	for id := range idx {
		if strings.Contains(text, id) {
			found = append(found, id)
		}
	}
	return found
}

func serialize(body any) string {
	switch body.(type) {
	case nil:
		return ""
	case map[string]any, models.Document, bson.M, bson.D:
		if b, err := bson.MarshalExtJSON(body, false, false); err == nil {
			return string(b)
		}
	}
	// Bodies bson cannot encode as a document still get a best-effort text form.
	var sb strings.Builder
	walk(body, func(key string, s string) {
		sb.WriteString(key)
		sb.WriteByte(':')
		sb.WriteString(s)
		sb.WriteByte('\n')
	})
	return sb.String()
}

// walk calls fn for every string leaf of v with the name of the nearest
// enclosing field.
func walk(v any, fn func(key, s string)) {
	walkValue("", v, fn)
}

func walkValue(key string, v any, fn func(key, s string)) {
	switch t := v.(type) {
	case nil:
	case string:
		fn(key, t)
	case primitive.ObjectID:
		fn(key, t.Hex())
	case map[string]any:
		for k, child := range t {
			walkValue(k, child, fn)
		}
	case models.Document:
		for k, child := range t {
			walkValue(k, child, fn)
		}
	case bson.M:
		for k, child := range t {
			walkValue(k, child, fn)
		}
	case bson.D:
		for _, e := range t {
			walkValue(e.Key, e.Value, fn)
		}
	case []any:
		for _, child := range t {
			walkValue(key, child, fn)
		}
	case bson.A:
		for _, child := range t {
			walkValue(key, child, fn)
		}
	case []string:
		for _, s := range t {
			fn(key, s)
		}
	default:
		walkReflect(key, reflect.ValueOf(v), fn)
	}
}

func walkReflect(key string, rv reflect.Value, fn func(key, s string)) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			walkValue(key, rv.Elem().Interface(), fn)
		}
	case reflect.String:
		fn(key, rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := 0; i < rv.Len(); i++ {
			walkValue(key, rv.Index(i).Interface(), fn)
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return
		}
		iter := rv.MapRange()
		for iter.Next() {
			walkValue(iter.Key().String(), iter.Value().Interface(), fn)
		}
	}
}

// segments splits a path or URL into unescaped path segments, dropping any
// query or fragment.
func segments(s string) []string {
	s = stripQuery(s)
	parts := strings.Split(s, "/")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		if u, err := url.PathUnescape(p); err == nil {
			p = u
		}
		out = append(out, p)
	}
	return out
}

func firstSegment(s string) string {
	if i := strings.IndexFunc(s, endOfSegment); i >= 0 {
		s = s[:i]
	}
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	return s
}

func endOfSegment(r rune) bool {
	switch r {
	case '/', '?', '#', '"', '\'', '<', '>', '(', ')', '[', ']', ',', ';':
		return true
	}
	return unicode.IsSpace(r)
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
