// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package loader contains utilities for loading MLSpace model files.
package loader

import (
	"bytes"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/mlspace/mlspace/ast"
	"github.com/mlspace/mlspace/metrics"
)

// ModelExt is the extension of model files picked up when walking directories.
const ModelExt = ".mls"

// Result represents the result of successfully loading zero or more files.
type Result struct {
	Models map[string]*ModelFile
}

// ModelFile represents the result of loading a single model file.
type ModelFile struct {
	Name   string
	Parsed *ast.Document
	Raw    []byte
}

// Names returns the names of the loaded models in sorted order.
func (l *Result) Names() []string {
	return slices.Sorted(maps.Keys(l.Models))
}

// ParsedDocuments returns the parsed documents stored on the result.
func (l *Result) ParsedDocuments() map[string]*ast.Document {
	docs := make(map[string]*ast.Document, len(l.Models))
	for name, m := range l.Models {
		docs[name] = m.Parsed
	}
	return docs
}

// Compile compiles every loaded model in name order. configure, if not nil,
// is applied to each compiler before it runs and may set overrides, a logger
// or metrics. The returned map holds the compiler of every model, failed
// ones included; the error lists the errors of the failed models.
func (l *Result) Compile(configure func(*ast.Compiler) *ast.Compiler) (map[string]*ast.Compiler, error) {
	compilers := make(map[string]*ast.Compiler, len(l.Models))
	var errs Errors

	for _, name := range l.Names() {
		c := ast.NewCompiler().WithFilename(name)
		if configure != nil {
			c = configure(c)
		}
		c.Compile(l.Models[name].Parsed)
		if c.Failed() {
			errs = append(errs, c.Errors)
		}
		compilers[name] = c
	}

	if len(errs) > 0 {
		return compilers, errs
	}
	return compilers, nil
}

// Filter defines the interface for filtering files during loading. If the
// filter returns true, the file should be excluded from the result.
type Filter func(abspath string, info os.FileInfo, depth int) bool

// GlobExcludeName excludes files and directories whose names match the
// shell style pattern at minDepth or greater. Patterns that do not compile
// exclude nothing.
func GlobExcludeName(pattern string, minDepth int) Filter {
	g, err := glob.Compile(pattern)
	return func(_ string, info os.FileInfo, depth int) bool {
		if err != nil {
			return false
		}
		return depth >= minDepth && g.Match(info.Name())
	}
}

// IgnoreFilter excludes names matching any of the patterns below the roots.
func IgnoreFilter(patterns []string) Filter {
	filters := make([]Filter, len(patterns))
	for i, p := range patterns {
		filters[i] = GlobExcludeName(p, 1)
	}
	return func(abspath string, info os.FileInfo, depth int) bool {
		return exclude(filters, abspath, info, depth)
	}
}

// ParseCache keeps recently parsed documents keyed by path and content, so
// reloading unchanged files skips the parser. Only documents that parsed
// without errors are kept.
type ParseCache struct {
	docs *lru.Cache[cacheKey, *ast.Document]
}

type cacheKey struct {
	path string
	sum  uint64
}

// NewParseCache returns a cache holding at most size documents.
func NewParseCache(size int) (*ParseCache, error) {
	docs, err := lru.New[cacheKey, *ast.Document](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create parse cache")
	}
	return &ParseCache{docs: docs}, nil
}

// Len returns the number of cached documents.
func (c *ParseCache) Len() int {
	return c.docs.Len()
}

// FileLoader loads model files from the file system.
type FileLoader struct {
	filter  Filter
	opts    ast.ParserOptions
	metrics metrics.Metrics
	cache   *ParseCache
}

// NewFileLoader returns a new FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{metrics: metrics.NoOp()}
}

// WithMetrics sets the metrics recording load and parse times.
func (fl *FileLoader) WithMetrics(m metrics.Metrics) *FileLoader {
	fl.metrics = m
	return fl
}

// WithFilter sets the filter applied while walking the paths.
func (fl *FileLoader) WithFilter(filter Filter) *FileLoader {
	fl.filter = filter
	return fl
}

// WithParserOptions sets the options passed to the parser.
func (fl *FileLoader) WithParserOptions(opts ast.ParserOptions) *FileLoader {
	fl.opts = opts
	return fl
}

// WithParseCache reuses the documents of files whose content did not change
// since they were last parsed through cache.
func (fl *FileLoader) WithParseCache(cache *ParseCache) *FileLoader {
	fl.cache = cache
	return fl
}

// All loads the model files at paths. Directories are walked recursively and
// only files with the model extension are read from them; files named
// explicitly are read whatever their extension.
func (fl *FileLoader) All(paths []string) (*Result, error) {
	var errs Errors
	result := &Result{Models: map[string]*ModelFile{}}

	metrics.Time(fl.metrics, metrics.LoadFiles, func() {
		for _, path := range paths {
			fl.allRec(path, &errs, result, 0)
		}
	})

	if len(errs) > 0 {
		return nil, errs
	}
	return result, nil
}

func (fl *FileLoader) allRec(path string, errs *Errors, result *Result, depth int) {
	info, err := os.Stat(path)
	if err != nil {
		errs.add(err)
		return
	}

	if fl.filter != nil && fl.filter(path, info, depth) {
		return
	}

	if !info.IsDir() {
		if depth > 0 && filepath.Ext(path) != ModelExt {
			return
		}
		var m *ModelFile
		metrics.Time(fl.metrics, metrics.ModelParse, func() {
			m, err = fl.loadModel(path)
		})
		if err != nil {
			errs.add(err)
			return
		}
		result.Models[m.Name] = m
		return
	}

	files, err := os.ReadDir(path)
	if err != nil {
		errs.add(err)
		return
	}

	for _, file := range files {
		fl.allRec(filepath.Join(path, file.Name()), errs, result, depth+1)
	}
}

// All returns a Result object loaded (recursively) from the specified paths.
func All(paths []string) (*Result, error) {
	return NewFileLoader().All(paths)
}

// Filtered returns a Result object loaded (recursively) from the specified
// paths while applying the given filter. If the filter returns true, the
// file/directory is excluded.
func Filtered(paths []string, filter Filter) (*Result, error) {
	return NewFileLoader().WithFilter(filter).All(paths)
}

// Model returns a ModelFile object loaded from the given path.
func Model(path string) (*ModelFile, error) {
	return loadModel(path, ast.ParserOptions{})
}

// CleanPath returns the normalized version of a path that can be used as an identifier.
func CleanPath(path string) string {
	return strings.Trim(filepath.ToSlash(path), "/")
}

// Paths returns a sorted list of files contained at path. If recurse is true
// and path is a directory, then Paths will walk the directory structure
// recursively and list files at each level.
func Paths(path string, recurse bool) (paths []string, err error) {
	err = filepath.Walk(path, func(f string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !recurse {
			if path != f && path != filepath.Dir(f) {
				return filepath.SkipDir
			}
		}
		paths = append(paths, f)
		return nil
	})
	return paths, err
}

// Dirs resolves filepaths to directories. It will return a list of unique
// directories.
func Dirs(paths []string) []string {
	unique := map[string]struct{}{}

	for _, path := range paths {
		dir := filepath.Dir(path)
		unique[dir] = struct{}{}
	}

	return slices.Sorted(maps.Keys(unique))
}

func exclude(filters []Filter, path string, info os.FileInfo, depth int) bool {
	for _, f := range filters {
		if f(path, info, depth) {
			return true
		}
	}
	return false
}

func (fl *FileLoader) loadModel(path string) (*ModelFile, error) {
	if fl.cache == nil {
		return loadModel(path, fl.opts)
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: path, sum: xxhash.Sum64(bs)}
	if doc, ok := fl.cache.docs.Get(key); ok {
		fl.metrics.Counter(metrics.ParseCacheHits).Incr()
		return &ModelFile{Name: path, Parsed: doc, Raw: bs}, nil
	}

	m, err := parseModel(path, bs, fl.opts)
	if err != nil {
		return nil, err
	}
	fl.cache.docs.Add(key, m.Parsed)
	return m, nil
}

func loadModel(path string, opts ast.ParserOptions) (*ModelFile, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseModel(path, bs, opts)
}

func parseModel(path string, bs []byte, opts ast.ParserOptions) (*ModelFile, error) {
	if len(bytes.TrimSpace(bs)) == 0 {
		return nil, emptyModelError(path)
	}
	doc, err := ast.ParseDocumentWithOpts(path, string(bs), opts)
	if err != nil {
		return nil, err
	}
	return &ModelFile{
		Name:   path,
		Parsed: doc,
		Raw:    bs,
	}, nil
}

func emptyModelError(path string) error {
	return errors.Errorf("%v: empty model file", path)
}
