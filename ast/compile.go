// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/mlspace/mlspace/logging"
	"github.com/mlspace/mlspace/metrics"
)

// Reserved variable names. They are matched case-insensitively and set the
// corresponding model flag when bound to a true-like value.
const (
	PeriodicBoundariesVar = "periodicBoundaries"
	PostponeInitVar       = "postponeInit"
)

// DefaultModelName is used when neither a file name nor a modelname
// declaration is available.
const DefaultModelName = "model"

var errCompileLimitReached = NewError(CompileErr, nil, "error limit reached")

// Compiler turns a parsed Document into a Model. Compilation runs in stages;
// the first stage reporting an error stops the process and no Model is
// produced.
type Compiler struct {
	// Errors contains the errors that occurred during compilation.
	Errors Errors

	// Warnings contains the non-fatal diagnostics: loop variables shadowing
	// definitions, lossy integer coercions and unused overrides.
	Warnings Errors

	// Model is the compiled model. It is nil if compilation failed.
	Model *Model

	filename  string
	overrides map[string]any
	logger    logging.Logger
	metrics   metrics.Metrics
	maxErrs   int

	doc      *Document
	name     string
	symbols  *SymbolTable
	varOrder []string
	species  *SpeciesRegistry
	rules    *RuleCollection
	init     *Population
	periodic bool
	postpone bool
	consumed map[string]struct{}

	stages []stage
}

type stage struct {
	f    func()
	name string
}

// NewCompiler returns a new empty compiler.
func NewCompiler() *Compiler {
	c := &Compiler{
		logger:   logging.NewNoOpLogger(),
		metrics:  metrics.NoOp(),
		species:  NewSpeciesRegistry(),
		rules:    &RuleCollection{},
		init:     NewPopulation(),
		consumed: map[string]struct{}{},
	}
	c.symbols = NewSymbolTable().WithWarnings(c.warn)

	c.stages = []stage{
		{c.setModelName, "setModelName"},
		{c.defineVariables, "defineVariables"},
		{c.registerSpecies, "registerSpecies"},
		{c.compileRules, "compileRules"},
		{c.expandInit, "expandInit"},
		{c.assemble, "assemble"},
	}

	return c
}

// WithFilename sets the source file name. Its base name without extension
// is the default model name.
func (c *Compiler) WithFilename(filename string) *Compiler {
	c.filename = filename
	return c
}

// WithOverrides sets external variable values. An override takes precedence
// over the definition of the same name in the document. Values may be
// numbers, strings (parsed as value sets when possible), booleans, lists or
// ValueRanges.
func (c *Compiler) WithOverrides(overrides map[string]any) *Compiler {
	c.overrides = overrides
	return c
}

// WithLogger sets the logger receiving warnings.
func (c *Compiler) WithLogger(logger logging.Logger) *Compiler {
	c.logger = logger
	return c
}

// WithMetrics sets the metrics recorder.
func (c *Compiler) WithMetrics(m metrics.Metrics) *Compiler {
	c.metrics = m
	return c
}

// WithErrorLimit caps the number of reported errors. Zero or a negative
// value disables the limit.
func (c *Compiler) WithErrorLimit(limit int) *Compiler {
	c.maxErrs = limit
	return c
}

// Compile runs the compilation process on the document. If the compilation
// fails the compiler contains the errors and Model is nil.
func (c *Compiler) Compile(doc *Document) {
	c.doc = doc

	defer func() {
		if r := recover(); r != nil && r != errCompileLimitReached {
			panic(r)
		}
	}()

	metrics.Time(c.metrics, metrics.ModelCompile, c.compile)
}

// Failed returns true if a compilation error has been encountered.
func (c *Compiler) Failed() bool {
	return len(c.Errors) > 0
}

// Symbols returns the symbol table of the compiler.
func (c *Compiler) Symbols() *SymbolTable {
	return c.symbols
}

func (c *Compiler) compile() {
	for _, s := range c.stages {
		metrics.Time(c.metrics, metrics.CompileStagePrefix+s.name, s.f)
		if c.Failed() {
			c.Model = nil
			return
		}
	}
}

func (c *Compiler) err(err error) {
	switch err := err.(type) {
	case Errors:
		for _, e := range err {
			c.err(e)
		}
		return
	case *Error:
		c.Errors = append(c.Errors, err)
	default:
		c.Errors = append(c.Errors, NewError(CompileErr, nil, "%v", err))
	}
	if c.maxErrs > 0 && len(c.Errors) >= c.maxErrs {
		c.Errors = append(c.Errors, errCompileLimitReached)
		panic(errCompileLimitReached)
	}
}

func (c *Compiler) warn(code ErrCode, loc *Location, f string, a ...any) {
	w := NewError(code, loc, f, a...)
	c.Warnings = append(c.Warnings, w)
	fields := map[string]any{"code": string(code)}
	if loc != nil {
		fields["location"] = locString(loc)
	}
	c.logger.WithFields(fields).Warn(w.Message)
}

func locString(loc *Location) string {
	if loc.File != "" {
		return loc.String()
	}
	return strconv.Itoa(loc.Row) + ":" + strconv.Itoa(loc.Col)
}

// withLocation attaches loc to errors raised by constructors that do not
// know their source position.
func withLocation(err error, loc *Location) error {
	if e, ok := err.(*Error); ok && e.Location == nil {
		cpy := *e
		cpy.Location = loc
		return &cpy
	}
	return err
}

// setModelName uses the declared model name, or the base name of the file.
func (c *Compiler) setModelName() {
	c.name = strings.TrimSuffix(filepath.Base(c.filename), filepath.Ext(c.filename))
	if c.filename == "" {
		c.name = DefaultModelName
	}
	if c.doc.ModelName != nil {
		c.name = c.doc.ModelName.Name
	}
}

// defineVariables binds the global variables in declaration order. Overrides
// replace the declared value; overrides naming no variable are reported.
func (c *Compiler) defineVariables() {
	for _, def := range c.doc.Vars {
		var r ValueRange
		var err error
		if v, ok := c.overrides[def.Name]; ok {
			c.consumed[def.Name] = struct{}{}
			r, err = c.overrideRange(v, def.Location)
		} else {
			r, err = c.evalValueSet(def.Value)
		}
		if err != nil {
			c.err(withLocation(err, def.Location))
			continue
		}
		c.define(def.Name, r)
	}

	for _, name := range slices.Sorted(maps.Keys(c.overrides)) {
		if _, ok := c.consumed[name]; ok {
			continue
		}
		if !isReserved(name) {
			c.warn(UnusedOverrideWarning, nil, "override %v does not name a variable of the model", name)
			continue
		}
		r, err := c.overrideRange(c.overrides[name], nil)
		if err != nil {
			c.err(err)
			continue
		}
		c.define(name, r)
	}
}

func (c *Compiler) define(name string, r ValueRange) {
	if _, ok := c.symbols.Peek(name); !ok {
		c.varOrder = append(c.varOrder, name)
	}
	c.symbols.Define(name, r)

	switch {
	case strings.EqualFold(name, PeriodicBoundariesVar):
		c.periodic = rangeTruthy(r)
		c.symbols.MarkUsed(name)
	case strings.EqualFold(name, PostponeInitVar):
		c.postpone = rangeTruthy(r)
		c.symbols.MarkUsed(name)
	}
}

func isReserved(name string) bool {
	return strings.EqualFold(name, PeriodicBoundariesVar) || strings.EqualFold(name, PostponeInitVar)
}

func rangeTruthy(r ValueRange) bool {
	sv, ok := r.(*SingleValue)
	return ok && TruthyValue(sv.Value)
}

// overrideRange converts an external parameter value into a range.
func (c *Compiler) overrideRange(v any, loc *Location) (ValueRange, error) {
	switch v := v.(type) {
	case ValueRange:
		return v, nil
	case Value:
		return NewSingleValue(v), nil
	case float64:
		return NewSingleValue(Number(v)), nil
	case float32:
		return NewSingleValue(Number(v)), nil
	case int:
		return NewSingleValue(Number(v)), nil
	case int64:
		return NewSingleValue(Number(v)), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, NewError(CompileErr, loc, "override %v is not a number", v)
		}
		return NewSingleValue(Number(f)), nil
	case bool:
		return NewSingleValue(String(strconv.FormatBool(v))), nil
	case string:
		if vs, err := ParseValueSet(v); err == nil {
			if r, err := c.evalValueSet(vs); err == nil {
				return r, nil
			}
		}
		return NewSingleValue(String(v)), nil
	case []any:
		elems := make([]Value, 0, len(v))
		for _, x := range v {
			r, err := c.overrideRange(x, loc)
			if err != nil {
				return nil, err
			}
			sv, ok := r.(*SingleValue)
			if !ok {
				return nil, NewError(CompileErr, loc, "override list element %v is not a single value", x)
			}
			elems = append(elems, sv.Value)
		}
		s, err := NewSet(elems)
		if err != nil {
			return nil, withLocation(err, loc)
		}
		return s, nil
	}
	return nil, NewError(CompileErr, loc, "unsupported override value %v (%T)", v, v)
}

// registerSpecies evaluates attribute domains and site angles and fills the
// species registry.
func (c *Compiler) registerSpecies() {
	for _, def := range c.doc.Species {
		sp := &Species{Name: def.Name, Location: def.Location}
		ok := true

		for _, decl := range def.Attrs {
			if _, dup := sp.Attribute(decl.Name); dup {
				c.err(NewError(CompileErr, decl.Location, "attribute %v declared twice on species %v", decl.Name, def.Name))
				ok = false
				continue
			}
			domain, err := c.evalValueSet(decl.Domain)
			if err != nil {
				c.err(withLocation(err, decl.Location))
				ok = false
				continue
			}
			sp.Attributes = append(sp.Attributes, Attribute{Name: decl.Name, Domain: domain})
		}

		for _, decl := range def.Sites {
			if sp.HasSite(decl.Name) {
				c.err(NewError(CompileErr, decl.Location, "binding site %v declared twice on species %v", decl.Name, def.Name))
				ok = false
				continue
			}
			var angle float64
			if decl.Angle != nil {
				var err error
				if angle, err = decl.Angle.Eval(c.symbols); err != nil {
					c.err(withLocation(err, decl.Location))
					ok = false
					continue
				}
			}
			sp.Sites = append(sp.Sites, Site{Name: decl.Name, Angle: angle})
		}

		if !ok {
			continue
		}
		if err := c.species.Register(sp); err != nil {
			c.err(err)
		}
	}
}

// compileRules builds the rule collection in declaration order.
func (c *Compiler) compileRules() {
	for _, stmt := range c.doc.Rules {
		rule, err := c.compileRule(stmt)
		if err != nil {
			c.err(err)
			continue
		}
		c.rules.Append(rule)
		c.metrics.Counter(metrics.RulesCompiled).Incr()
	}
}

func (c *Compiler) compileRule(stmt *RuleStmt) (*Rule, error) {
	var errs Errors

	lhs, err := MapRuleSide(stmt.LHS, func(t *EntityTerm) (*EntityPattern, error) {
		p, err := c.compilePattern(t)
		if err != nil {
			errs = append(errs, asErrors(err)...)
		}
		return p, nil
	})
	if err != nil {
		errs = append(errs, asErrors(err)...)
	}

	rhs, err := MapRuleSide(stmt.RHS, func(t *EntityTerm) (*ModEntity, error) {
		m, err := c.compileModEntity(t)
		if err != nil {
			errs = append(errs, asErrors(err)...)
		}
		return m, nil
	})
	if err != nil {
		errs = append(errs, asErrors(err)...)
	}

	rate, err := NewQuantity(stmt.Rate, c.symbols)
	if err != nil {
		errs = append(errs, asErrors(withLocation(err, stmt.Location))...)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &Rule{Name: stmt.Name, LHS: lhs, RHS: rhs, Rate: rate, Location: stmt.Location}, nil
}

func asErrors(err error) Errors {
	switch err := err.(type) {
	case Errors:
		return err
	case *Error:
		return Errors{err}
	}
	return Errors{NewError(CompileErr, nil, "%v", err)}
}

// compilePattern turns a left-hand side entity into a pattern, checking
// attribute and site names against the species.
func (c *Compiler) compilePattern(t *EntityTerm) (*EntityPattern, error) {
	sp, serr := c.species.Resolve(t.Species, t.Location)
	if serr != nil {
		return nil, serr
	}

	var errs Errors
	p := NewEntityPattern(t.Species, t.Location)

	for _, item := range t.Attrs {
		if err := sp.CheckAttribute(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := p.Attributes[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "attribute %v constrained twice on %v", item.Name, t.Species))
			continue
		}
		m, err := c.compileMatch(item)
		if err != nil {
			errs = append(errs, asErrors(withLocation(err, item.Location))...)
			continue
		}
		p.Attributes[item.Name] = m
	}

	for _, item := range t.Sites {
		if err := sp.CheckSite(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := p.Sites[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "binding site %v constrained twice on %v", item.Name, t.Species))
			continue
		}
		switch item.Kind {
		case SiteItemFree:
			p.Sites[item.Name] = SiteFree{}
		case SiteItemOcc:
			p.Sites[item.Name] = SiteOccupied{}
		case SiteItemEntity:
			nested, err := c.compilePattern(item.Entity)
			if err != nil {
				errs = append(errs, asErrors(err)...)
				continue
			}
			p.Sites[item.Name] = &SiteBoundTo{Pattern: nested}
		default:
			errs = append(errs, NewError(CompileErr, item.Location, "binding action %v is not allowed in a pattern", siteItemKeywords[item.Kind]))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

var compareOpsByAttr = map[AttrOp]CompareOp{
	AttrEq:  Equal,
	AttrGt:  GreaterThan,
	AttrGte: GreaterOrEqual,
	AttrLt:  LessThan,
	AttrLte: LessOrEqual,
}

func (c *Compiler) compileMatch(item *AttrItem) (ValueMatch, error) {
	vs := item.Value

	switch {
	case item.Op.Compare():
		operand, err := c.operand(vs)
		if err != nil {
			return nil, err
		}
		op := compareOpsByAttr[item.Op]
		if v, ok := operand.Value(); ok && op != Equal {
			if _, numeric := v.(Number); !numeric {
				return nil, NewError(CompileErr, vs.Location, "comparison %v requires a numeric operand, got %v", op, v)
			}
		}
		return NewCompare(op, operand), nil

	case item.Op == AttrIn:
		low, err := NewQuantity(vs.Exprs[0], c.symbols)
		if err != nil {
			return nil, err
		}
		high, err := NewQuantity(vs.Exprs[1], c.symbols)
		if err != nil {
			return nil, err
		}
		return &InRange{Low: low, High: high, LowInc: vs.LowInc, HighInc: vs.HighInc}, nil
	}

	switch vs.Kind {
	case ValueSetStringKind, ValueSetVectorKind:
		operand, err := c.operand(vs)
		if err != nil {
			return nil, err
		}
		return NewCompare(Equal, operand), nil
	case ValueSetExprKind:
		if name, ok := vs.Ident(); ok {
			if r, ok := c.symbols.Lookup(name); ok {
				if sv, single := r.(*SingleValue); single {
					return NewCompare(Equal, Immediate(sv.Value)), nil
				}
				return &AnyIn{Range: r}, nil
			}
		}
		operand, err := c.operand(vs)
		if err != nil {
			return nil, err
		}
		return NewCompare(Equal, operand), nil
	}

	r, err := c.evalValueSet(vs)
	if err != nil {
		return nil, err
	}
	return &AnyIn{Range: r}, nil
}

// operand returns the quantity of a single-valued item: a string, a
// symbolic identifier, a vector or a possibly deferred expression.
func (c *Compiler) operand(vs *ValueSetExpr) (Quantity, error) {
	switch vs.Kind {
	case ValueSetStringKind:
		return Immediate(String(vs.Str)), nil
	case ValueSetVectorKind:
		r, err := c.evalValueSet(vs)
		if err != nil {
			return Quantity{}, err
		}
		return Immediate(r.(*SingleValue).Value), nil
	case ValueSetExprKind:
		if name, ok := c.symbol(vs); ok {
			return Immediate(String(name)), nil
		}
		return NewQuantity(vs.Exprs[0], c.symbols)
	}
	return Quantity{}, NewError(CompileErr, vs.Location, "expected a single value but got %v", vs)
}

// symbol reports whether vs is a bare identifier that names neither a
// variable nor a constant. Such identifiers are symbolic values.
func (c *Compiler) symbol(vs *ValueSetExpr) (string, bool) {
	name, ok := vs.Ident()
	if !ok {
		return "", false
	}
	if _, ok := c.symbols.Peek(name); ok {
		return "", false
	}
	if _, ok := Constants[name]; ok {
		return "", false
	}
	return name, true
}

var relativeOperators = map[AttrOp]Operator{
	AttrAddEq: OpAdd,
	AttrSubEq: OpSub,
	AttrMulEq: OpMul,
	AttrDivEq: OpDiv,
}

// compileModEntity turns a right-hand side entity into a construction. A
// wildcard site action applies to every declared site not named explicitly.
func (c *Compiler) compileModEntity(t *EntityTerm) (*ModEntity, error) {
	sp, serr := c.species.Resolve(t.Species, t.Location)
	if serr != nil {
		return nil, serr
	}

	var errs Errors
	m := NewModEntity(t.Species, t.Location)

	for _, item := range t.Attrs {
		if err := sp.CheckAttribute(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := m.Modifiers[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "attribute %v modified twice on %v", item.Name, t.Species))
			continue
		}
		mod, err := c.compileModifier(item)
		if err != nil {
			errs = append(errs, asErrors(withLocation(err, item.Location))...)
			continue
		}
		m.Modifiers[item.Name] = mod
	}

	var wildcard BindingAction
	for _, item := range t.Sites {
		if err := sp.CheckSite(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		var action BindingAction
		switch item.Kind {
		case SiteItemBind:
			action = Bind
		case SiteItemRelease:
			action = Release
		case SiteItemReplace:
			action = Replace
		default:
			errs = append(errs, NewError(CompileErr, item.Location, "site %v needs one of bind, release or replace", item.Name))
			continue
		}
		if item.Name == WildcardSite {
			wildcard = action
			continue
		}
		if _, dup := m.Bindings[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "binding site %v used twice on %v", item.Name, t.Species))
			continue
		}
		m.Bindings[item.Name] = action
	}
	if wildcard != 0 {
		for name := range sp.SiteNames() {
			if _, ok := m.Bindings[name]; !ok {
				m.Bindings[name] = wildcard
			}
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return m, nil
}

func (c *Compiler) compileModifier(item *AttrItem) (ValueModifier, error) {
	vs := item.Value

	if op, ok := relativeOperators[item.Op]; ok {
		q, err := NewQuantity(vs.Exprs[0], c.symbols)
		if err != nil {
			return nil, err
		}
		return &Relative{Op: op, Operand: q}, nil
	}

	switch vs.Kind {
	case ValueSetStringKind, ValueSetVectorKind:
		q, err := c.operand(vs)
		if err != nil {
			return nil, err
		}
		return &AbsoluteSet{Operand: q}, nil
	case ValueSetExprKind:
		if name, ok := vs.Ident(); ok {
			if r, ok := c.symbols.Lookup(name); ok {
				if sv, single := r.(*SingleValue); single {
					return &AbsoluteSet{Operand: Immediate(sv.Value)}, nil
				}
				return &Redraw{Range: r}, nil
			}
		}
		q, err := c.operand(vs)
		if err != nil {
			return nil, err
		}
		return &AbsoluteSet{Operand: q}, nil
	}

	r, err := c.evalValueSet(vs)
	if err != nil {
		return nil, err
	}
	return &Redraw{Range: r}, nil
}

// compileInitEntity resolves an init entity against the current bindings.
// Every expression is evaluated immediately.
func (c *Compiler) compileInitEntity(t *EntityTerm, contents *Population) (*InitEntity, error) {
	sp, serr := c.species.Resolve(t.Species, t.Location)
	if serr != nil {
		return nil, serr
	}

	var errs Errors
	attrs := make(map[string]Value, len(t.Attrs))
	partners := map[string]*InitEntity{}

	for _, item := range t.Attrs {
		if err := sp.CheckAttribute(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := attrs[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "attribute %v set twice on %v", item.Name, t.Species))
			continue
		}
		r, err := c.evalValueSet(item.Value)
		if err != nil {
			errs = append(errs, asErrors(withLocation(err, item.Location))...)
			continue
		}
		if sv, ok := r.(*SingleValue); ok {
			attrs[item.Name] = sv.Value
		} else {
			attrs[item.Name] = RangeValue{Range: r}
		}
	}

	for _, item := range t.Sites {
		if err := sp.CheckSite(item.Name, item.Location); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := partners[item.Name]; dup {
			errs = append(errs, NewError(CompileErr, item.Location, "binding site %v set twice on %v", item.Name, t.Species))
			continue
		}
		switch item.Kind {
		case SiteItemFree:
			partners[item.Name] = nil
		case SiteItemEntity:
			p, err := c.compileInitEntity(item.Entity, nil)
			if err != nil {
				errs = append(errs, asErrors(err)...)
				continue
			}
			partners[item.Name] = p
		default:
			errs = append(errs, NewError(CompileErr, item.Location, "site %v of an initial entity must be free or bound to an entity", item.Name))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return NewInitEntity(t.Species, attrs, partners, contents), nil
}

// evalValueSet evaluates a value set in the current scope.
func (c *Compiler) evalValueSet(vs *ValueSetExpr) (ValueRange, error) {
	return EvalValueSet(vs, c.symbols)
}

// EvalValueSet evaluates a value set against env. A bare identifier
// names a variable, whose range is returned, or else is a symbolic value.
func EvalValueSet(vs *ValueSetExpr, env Env) (ValueRange, error) {
	switch vs.Kind {
	case ValueSetStringKind:
		return NewSingleValue(String(vs.Str)), nil

	case ValueSetExprKind:
		if name, ok := vs.Ident(); ok {
			if r, ok := env.Lookup(name); ok {
				return r, nil
			}
			if _, ok := Constants[name]; !ok {
				return NewSingleValue(String(name)), nil
			}
		}
		f, err := vs.Exprs[0].Eval(env)
		if err != nil {
			return nil, err
		}
		return NewSingleValue(Number(f)), nil

	case ValueSetSetKind:
		elems := make([]Value, 0, len(vs.Elems))
		for _, e := range vs.Elems {
			r, err := EvalValueSet(e, env)
			if err != nil {
				return nil, err
			}
			sv, ok := r.(*SingleValue)
			if !ok {
				return nil, NewError(MalformedValueRangeErr, e.Location, "set element %v is not a single value", e)
			}
			elems = append(elems, sv.Value)
		}
		s, err := NewSet(elems)
		if err != nil {
			return nil, withLocation(err, vs.Location)
		}
		return s, nil

	case ValueSetRangeKind:
		fs, err := evalAll(vs.Exprs, env)
		if err != nil {
			return nil, err
		}
		var r *SteppedRange
		if len(fs) == 2 {
			r, err = NewRange(fs[0], 1, fs[1])
		} else {
			r, err = NewRange(fs[0], fs[1], fs[2])
		}
		if err != nil {
			return nil, withLocation(err, vs.Location)
		}
		return r, nil

	case ValueSetIntervalKind:
		fs, err := evalAll(vs.Exprs, env)
		if err != nil {
			return nil, err
		}
		r, err := NewInterval(fs[0], fs[1], vs.LowInc, vs.HighInc)
		if err != nil {
			return nil, withLocation(err, vs.Location)
		}
		return r, nil

	case ValueSetVectorKind:
		fs, err := evalAll(vs.Exprs, env)
		if err != nil {
			return nil, err
		}
		return NewSingleValue(Vector(fs)), nil
	}

	return nil, NewError(CompileErr, vs.Location, "unknown value set %v", vs)
}

func evalAll(exprs []Expr, env Env) ([]float64, error) {
	out := make([]float64, len(exprs))
	for i, x := range exprs {
		f, err := x.Eval(env)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// evalCount evaluates the copy count of an init entry. Fractional counts
// are truncated toward zero with a warning. Counts too large for an int
// are errors.
func (c *Compiler) evalCount(x Expr) (int, error) {
	f, err := x.Eval(c.symbols)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, NewError(CompileErr, x.Loc(), "count %v is not a finite number", x)
	}
	t := math.Trunc(f)
	if t != f {
		c.warn(TruncationWarning, x.Loc(), "count %v truncated from %v to %v", x, formatFloat(f), formatFloat(t))
	}
	switch {
	case t >= float64(math.MaxInt):
		return 0, NewError(CompileErr, x.Loc(), "count %v out of range", x)
	case t < 0:
		return 0, nil
	}
	return int(t), nil
}

// expandInit interprets the init block into the initial population.
func (c *Compiler) expandInit() {
	metrics.Time(c.metrics, metrics.InitExpand, func() {
		pop, err := newExpander(c).expand(c.doc.Init)
		if err != nil {
			c.err(err)
			return
		}
		c.init = pop
	})
}

// assemble freezes the compiled parts into the model.
func (c *Compiler) assemble() {
	c.rules.Freeze()
	vars := make(map[string]ValueRange, len(c.varOrder))
	globals := c.symbols.Globals()
	for _, name := range c.varOrder {
		vars[name] = globals[name]
	}
	c.Model = &Model{
		Name:               c.name,
		Variables:          vars,
		VariableOrder:      slices.Clone(c.varOrder),
		UsedVariables:      c.symbols.Used(),
		Species:            c.species,
		Rules:              c.rules,
		Init:               c.init,
		PeriodicBoundaries: c.periodic,
		PostponeInit:       c.postpone,
	}
}

// BindOverrides converts external parameter values into an environment,
// the way the compiler reads overrides. Strings name no variables here, so
// identifiers in them are symbolic values.
func BindOverrides(overrides map[string]any) (Bindings, error) {
	c := NewCompiler()
	b := make(Bindings, len(overrides))
	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		r, err := c.overrideRange(overrides[name], nil)
		if err != nil {
			return nil, err
		}
		b[name] = r
	}
	return b, nil
}

// CompileModel is a helper function to parse and compile a model document.
func CompileModel(filename, input string, overrides map[string]any) (*Compiler, *Model, error) {
	doc, err := ParseDocument(filename, input)
	if err != nil {
		return nil, nil, err
	}

	c := NewCompiler().WithFilename(filename).WithOverrides(overrides)
	if c.Compile(doc); c.Failed() {
		return c, nil, c.Errors
	}
	return c, c.Model, nil
}

// MustCompileModel compiles input and panics on error. This function is
// mainly used in tests.
func MustCompileModel(input string) *Model {
	_, m, err := CompileModel("", input, nil)
	if err != nil {
		panic(fmt.Sprint(err))
	}
	return m
}
