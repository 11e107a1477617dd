// Package signatures holds the built-in table of known front-end libraries.
package signatures

import (
	"regexp"
	"sync"
)

// Signature describes a front-end library the scanner can recognise by its
// script file name.
type Signature struct {
	Key           string         // lower-case identifier, also matched against inline banners
	Name          string         // display name
	Pattern       *regexp.Regexp // matched against script src; group 1 is the version, if any
	LatestVersion string
	AdvisoryURL   string
}

// Table is an immutable, ordered set of signatures.
type Table struct {
	entries []Signature
	byKey   map[string]int
}

// NewTable builds a table from the given signatures. Later duplicates of a
// key are ignored.
func NewTable(entries []Signature) *Table {
	t := &Table{byKey: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, dup := t.byKey[e.Key]; dup {
			continue
		}
		t.byKey[e.Key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// All returns a copy of the signatures in registration order.
func (t *Table) All() []Signature {
	out := make([]Signature, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Lookup(key string) (Signature, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Signature{}, false
	}
	return t.entries[i], true
}

func (t *Table) Len() int { return len(t.entries) }

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide built-in table. It is constructed on first
// use and never modified afterwards.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = NewTable(builtin())
	})
	return defaultTable
}

func builtin() []Signature {
	return []Signature{
		{
			Key:           "jquery",
			Name:          "jQuery",
			Pattern:       regexp.MustCompile(`(?i)jquery[.-]([0-9.]+)(?:\.min)?\.js`),
			LatestVersion: "3.7.1",
			AdvisoryURL:   "https://jquery.com/",
		},
		fileSignature("angular", "AngularJS", "1.8.3", "https://angularjs.org/"),
		fileSignature("react", "React", "18.2.0", "https://reactjs.org/"),
		fileSignature("vue", "Vue.js", "3.4.0", "https://vuejs.org/"),
		fileSignature("bootstrap", "Bootstrap", "5.3.2", "https://getbootstrap.com/"),
		fileSignature("lodash", "Lodash", "4.17.21", "https://lodash.com/"),
		fileSignature("moment", "Moment.js", "2.30.0", "https://momentjs.com/"),
		fileSignature("backbone", "Backbone.js", "1.4.1", "https://backbonejs.org/"),
		fileSignature("underscore", "Underscore.js", "1.13.6", "https://underscorejs.org/"),
	}
}

// fileSignature matches "<key>.js", "<key>.min.js" and the versioned forms
// "<key>-1.2.3.js" / "<key>.1.2.3.min.js".
func fileSignature(key, name, latest, advisory string) Signature {
	return Signature{
		Key:           key,
		Name:          name,
		Pattern:       regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) + `(?:[.-]([0-9.]+))?(?:\.min)?\.js`),
		LatestVersion: latest,
		AdvisoryURL:   advisory,
	}
}
