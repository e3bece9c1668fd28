// Copyright 2026 The MLSpace Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package ast

import (
	"io"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/mlspace/mlspace/internal/levenshtein"
	"github.com/mlspace/mlspace/internal/lexer"
)

// DefaultErrorLimit is the number of errors the parser reports before it
// gives up.
const DefaultErrorLimit = 10

var errLimitReached = NewError(ParseErr, nil, "error limit reached")

// ParserOptions defines the options for parsing MLSpace models.
type ParserOptions struct {
	// ErrorLimit caps the number of reported errors. Zero means
	// DefaultErrorLimit; a negative value disables the limit.
	ErrorLimit int
}

// entityMode selects which attribute and site items an entity accepts.
type entityMode int

const (
	modeLHS entityMode = iota
	modeRHS
	modeInit
)

// document phases; statements must appear in this order.
const (
	phaseVars = iota
	phaseSpecies
	phaseBody
)

// Parser is used to parse MLSpace model documents. Parsing is pure: the only
// state kept across statements are the species names declared so far, used
// to choose between productions.
type Parser struct {
	filename string
	r        io.Reader
	input    string
	po       ParserOptions

	tokens []lexer.Token
	pos    int
	failed bool
	errors Errors

	species map[string]*Location
}

// NewParser creates and initializes a Parser.
func NewParser() *Parser {
	return &Parser{species: map[string]*Location{}}
}

// WithFilename provides the filename for Location details
// on parsed statements.
func (p *Parser) WithFilename(filename string) *Parser {
	p.filename = filename
	return p
}

// WithReader provides the io.Reader that the parser will
// use as its source.
func (p *Parser) WithReader(r io.Reader) *Parser {
	p.r = r
	return p
}

// WithInput provides the source text directly.
func (p *Parser) WithInput(input string) *Parser {
	p.input = input
	p.r = nil
	return p
}

// WithParserOptions sets the options.
func (p *Parser) WithParserOptions(po ParserOptions) *Parser {
	p.po = po
	return p
}

// IsSpecies reports whether name was declared as a species earlier in the
// document. It has no side effects.
func (p *Parser) IsSpecies(name string) bool {
	_, ok := p.species[name]
	return ok
}

// Parse parses the input into a Document. All syntax errors found after
// recovery are returned together.
func (p *Parser) Parse() (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r != errLimitReached {
				panic(r)
			}
			doc, err = nil, p.errors
		}
	}()

	if err := p.tokenize(); err != nil {
		return nil, err
	}

	doc = p.parseDocument()
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return doc, nil
}

func (p *Parser) tokenize() error {
	if p.r != nil {
		bs, err := io.ReadAll(p.r)
		if err != nil {
			return err
		}
		p.input = string(bs)
	}
	lex := lexer.New(p.filename, p.input)
	p.tokens = p.tokens[:0]
	p.pos = 0
	for {
		tok, err := lex.ReadToken()
		if err != nil {
			// Every lexical error consumes input, so scanning resumes
			// after the offending text.
			p.record(NewError(ParseErr, p.tokenLoc(tok), "%v", lexMessage(err)))
			continue
		}
		p.tokens = append(p.tokens, tok)
		if tok.Kind == lexer.EOF {
			return nil
		}
	}
}

func lexMessage(err error) string {
	if e, ok := err.(*lexer.Error); ok {
		return e.Message
	}
	return err.Error()
}

// record appends err to the error list and aborts once the limit is hit.
func (p *Parser) record(err *Error) {
	p.errors = append(p.errors, err)
	limit := p.po.ErrorLimit
	if limit == 0 {
		limit = DefaultErrorLimit
	}
	if limit > 0 && len(p.errors) >= limit {
		p.errors = append(p.errors, errLimitReached)
		panic(errLimitReached)
	}
}

func (p *Parser) error(tok lexer.Token, format string, args ...any) {
	if p.failed {
		return
	}
	p.failed = true
	p.record(NewError(ParseErr, p.tokenLoc(tok), format, args...))
}

func (p *Parser) fail(err *Error) {
	if p.failed {
		return
	}
	p.failed = true
	p.record(err)
}

func (p *Parser) unexpectedToken(tok lexer.Token, expected ...lexer.Type) {
	names := make([]string, len(expected))
	for i := range expected {
		names[i] = expected[i].String()
	}
	switch len(names) {
	case 0:
		p.error(tok, "unexpected %v", tok)
	case 1:
		p.error(tok, "unexpected %v: expected %v", tok, names[0])
	default:
		p.error(tok, "unexpected %v: expected one of: %v", tok, strings.Join(names, ", "))
	}
}

func (p *Parser) tokenLoc(tok lexer.Token) *Location {
	text := tok.Value
	if text == "" && tok.Kind != lexer.EOF {
		text = tok.Kind.Name()
	}
	return NewLocation([]byte(text), p.filename, tok.Pos.Line, tok.Pos.Column)
}

// peek returns the next token without consuming it. After an error the
// parser reports EOF until it is resynchronized.
func (p *Parser) peek() lexer.Token {
	return p.peekN(0)
}

func (p *Parser) peekN(n int) lexer.Token {
	last := p.tokens[len(p.tokens)-1]
	if p.failed {
		return lexer.Token{Kind: lexer.EOF, Pos: last.Pos}
	}
	if p.pos+n >= len(p.tokens) {
		return last
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() lexer.Token {
	tok := p.peek()
	if !p.failed && p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind lexer.Type) lexer.Token {
	tok := p.peek()
	if tok.Kind == kind {
		return p.next()
	}
	if !p.failed {
		p.unexpectedToken(tok, kind)
	}
	return tok
}

func (p *Parser) skip(kind lexer.Type) bool {
	if p.peek().Kind != kind {
		return false
	}
	p.next()
	return true
}

type mark struct {
	pos  int
	errs int
}

func (p *Parser) mark() mark {
	return mark{pos: p.pos, errs: len(p.errors)}
}

func (p *Parser) reset(m mark) {
	p.pos = m.pos
	p.errors = p.errors[:m.errs]
	p.failed = false
}

// sync skips to the next statement separator at bracket depth zero.
func (p *Parser) sync() {
	p.failed = false
	depth := 0
	for {
		switch p.peek().Kind {
		case lexer.EOF:
			return
		case lexer.ParenL, lexer.BracketL, lexer.BraceL:
			depth++
		case lexer.ParenR, lexer.BracketR, lexer.BraceR:
			if depth > 0 {
				depth--
			}
		case lexer.Semicolon:
			if depth == 0 {
				return
			}
		}
		p.next()
	}
}

func (p *Parser) parseDocument() *Document {
	doc := &Document{}
	phase := phaseVars
	seenRules := false

	for {
		for p.skip(lexer.Semicolon) {
		}
		tok := p.peek()
		if tok.Kind == lexer.EOF {
			break
		}

		switch {
		case tok.Kind == lexer.ModelName:
			if decl := p.parseModelName(); decl != nil {
				doc.ModelName = decl
			}
		case tok.Kind == lexer.Name && !p.IsSpecies(tok.Value) && isAssign(p.peekN(1).Kind):
			if phase > phaseVars {
				p.error(tok, "variable %v must be defined before species, rules and init", tok.Value)
				break
			}
			if def := p.parseVarDef(); def != nil {
				doc.Vars = append(doc.Vars, def)
			}
		case tok.Kind == lexer.Name && !p.IsSpecies(tok.Value) && p.peekN(1).Kind == lexer.ParenL:
			if phase > phaseSpecies {
				p.error(tok, "species %v must be defined before rules and init", tok.Value)
				break
			}
			phase = phaseSpecies
			if def := p.parseSpeciesDef(); def != nil {
				doc.Species = append(doc.Species, def)
			}
		case p.isRuleStart():
			phase = phaseBody
			if len(doc.Init) > 0 && !doc.InitFirst {
				p.error(tok, "rules must not follow the init block")
				break
			}
			seenRules = true
			if rule := p.parseRule(); rule != nil {
				doc.Rules = append(doc.Rules, rule)
			}
		case isInitStart(tok.Kind):
			phase = phaseBody
			if len(doc.Init) > 0 {
				p.error(tok, "duplicate init block")
				break
			}
			init := p.parseInit(lexer.Semicolon)
			if !p.failed {
				doc.Init = init
				doc.InitFirst = !seenRules
			}
		default:
			p.unexpectedToken(tok)
		}

		if !p.failed && p.peek().Kind != lexer.EOF {
			p.expect(lexer.Semicolon)
		}
		if p.failed {
			p.sync()
		}
	}

	return doc
}

func isAssign(kind lexer.Type) bool {
	return kind == lexer.Equals || kind == lexer.Walrus
}

func (p *Parser) isRuleStart() bool {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Arrow:
		return true
	case lexer.Name:
		if p.IsSpecies(tok.Value) {
			return true
		}
		// An undeclared name followed by rule punctuation is reported as an
		// undeclared species by parseEntity.
		switch p.peekN(1).Kind {
		case lexer.Colon, lexer.Arrow, lexer.BracketL, lexer.Less, lexer.Comma:
			return true
		}
	}
	return false
}

func isInitStart(kind lexer.Type) bool {
	return kind == lexer.For || isExprStart(kind)
}

func isExprStart(kind lexer.Type) bool {
	switch kind {
	case lexer.Number, lexer.Name, lexer.ParenL, lexer.BracketL, lexer.Minus, lexer.Plus, lexer.Hash, lexer.Min, lexer.Max:
		return true
	}
	return false
}

func (p *Parser) parseModelName() *ModelNameDecl {
	p.expect(lexer.ModelName)
	tok := p.expect(lexer.Name)
	if p.failed {
		return nil
	}
	return &ModelNameDecl{Name: tok.Value, Location: p.tokenLoc(tok)}
}

func (p *Parser) parseVarDef() *VarDef {
	tok := p.expect(lexer.Name)
	p.next() // = or :=
	value := p.parseValueSet()
	if p.failed {
		return nil
	}
	return &VarDef{Name: tok.Value, Value: value, Location: p.tokenLoc(tok)}
}

func (p *Parser) parseSpeciesDef() *SpeciesDef {
	tok := p.expect(lexer.Name)
	def := &SpeciesDef{Name: tok.Value, Location: p.tokenLoc(tok)}

	p.expect(lexer.ParenL)
	for p.peek().Kind != lexer.ParenR && !p.failed {
		if len(def.Attrs) > 0 {
			p.expect(lexer.Comma)
		}
		name := p.expect(lexer.Name)
		p.expect(lexer.Colon)
		domain := p.parseValueSet()
		if p.failed {
			return nil
		}
		def.Attrs = append(def.Attrs, &AttrDecl{Name: name.Value, Domain: domain, Location: p.tokenLoc(name)})
	}
	p.expect(lexer.ParenR)

	if p.skip(lexer.Less) {
		for p.peek().Kind != lexer.Greater && !p.failed {
			if len(def.Sites) > 0 {
				p.expect(lexer.Comma)
			}
			name := p.expect(lexer.Name)
			site := &SiteDecl{Name: name.Value, Location: p.tokenLoc(name)}
			if p.skip(lexer.Colon) {
				site.Angle = p.parseExpr()
			}
			def.Sites = append(def.Sites, site)
		}
		p.expect(lexer.Greater)
	}

	if p.failed {
		return nil
	}
	if prev, ok := p.species[def.Name]; ok {
		p.fail(NewError(ParseErr, def.Location, "species %v already defined at %v", def.Name, prev))
		return nil
	}
	p.species[def.Name] = def.Location
	return def
}

func (p *Parser) parseRule() *RuleStmt {
	start := p.peek()
	rule := &RuleStmt{Location: p.tokenLoc(start)}

	if start.Kind == lexer.Name && p.peekN(1).Kind == lexer.Colon {
		rule.Name = p.next().Value
		p.next()
	}

	rule.LHS = p.parseSide(modeLHS)
	p.expect(lexer.Arrow)
	rule.RHS = p.parseSide(modeRHS)
	p.expect(lexer.At)
	rule.Rate = p.parseExpr()

	if p.failed {
		return nil
	}
	return rule
}

// parseSide parses an entity list with an optional bracketed context
// group. An empty list is allowed.
func (p *Parser) parseSide(mode entityMode) RuleSide[*EntityTerm] {
	b := NewRuleSideBuilder[*EntityTerm]()
	expectEntity := true
	started := false

	for !p.failed {
		tok := p.peek()
		switch {
		case expectEntity && tok.Kind == lexer.Name:
			if e := p.parseEntity(mode); e != nil {
				b.AddEntity(e)
			}
			expectEntity = false
			started = true
			continue
		case !expectEntity && tok.Kind == lexer.BracketL:
			if err := b.MakeLastContext(p.tokenLoc(tok)); err != nil {
				p.fail(err.(*Error))
				continue
			}
			p.next()
			expectEntity = true
			continue
		case !expectEntity && tok.Kind == lexer.BracketR:
			if err := b.CloseContext(p.tokenLoc(tok)); err != nil {
				p.fail(err.(*Error))
				continue
			}
			p.next()
			continue
		case !expectEntity && tok.Kind.IsEntitySeparator():
			p.next()
			expectEntity = true
			continue
		case expectEntity && started:
			p.unexpectedToken(tok, lexer.Name)
			continue
		}
		break
	}

	side, err := b.Build(p.tokenLoc(p.peek()))
	if err != nil {
		p.fail(err.(*Error))
	}
	return side
}

// parseEntity parses "Species(items)<sites>".
func (p *Parser) parseEntity(mode entityMode) *EntityTerm {
	tok := p.expect(lexer.Name)
	if p.failed {
		return nil
	}
	if !p.IsSpecies(tok.Value) {
		err := NewError(UndeclaredSpeciesErr, p.tokenLoc(tok), "species %v is not defined", tok.Value)
		err.Details = suggestionDetails{levenshtein.Suggest(tok.Value, maps.Keys(p.species))}
		p.fail(err)
		return nil
	}
	e := &EntityTerm{Species: tok.Value, Location: p.tokenLoc(tok)}

	if p.skip(lexer.ParenL) {
		for p.peek().Kind != lexer.ParenR && !p.failed {
			if len(e.Attrs) > 0 {
				p.expect(lexer.Comma)
			}
			if item := p.parseAttrItem(mode); item != nil {
				e.Attrs = append(e.Attrs, item)
			}
		}
		p.expect(lexer.ParenR)
	}

	if p.skip(lexer.Less) {
		for p.peek().Kind != lexer.Greater && !p.failed {
			if len(e.Sites) > 0 {
				p.expect(lexer.Comma)
			}
			if item := p.parseSiteItem(mode); item != nil {
				e.Sites = append(e.Sites, item)
			}
		}
		p.expect(lexer.Greater)
	}

	if p.failed {
		return nil
	}
	return e
}

var compareOps = map[lexer.Type]AttrOp{
	lexer.EqEq:      AttrEq,
	lexer.Greater:   AttrGt,
	lexer.GreaterEq: AttrGte,
	lexer.Less:      AttrLt,
	lexer.LessEq:    AttrLte,
}

var relativeOps = map[lexer.Type]AttrOp{
	lexer.Plus:  AttrAddEq,
	lexer.Minus: AttrSubEq,
	lexer.Star:  AttrMulEq,
	lexer.Slash: AttrDivEq,
}

func (p *Parser) parseAttrItem(mode entityMode) *AttrItem {
	name := p.expect(lexer.Name)
	item := &AttrItem{Name: name.Value, Location: p.tokenLoc(name)}

	if op, ok := relativeOps[p.peek().Kind]; ok && mode == modeRHS && p.peekN(1).Kind == lexer.Equals {
		p.next()
		p.next()
		item.Op = op
		item.Value = p.singleExpr()
		return p.finishAttr(item)
	}

	p.expect(lexer.Colon)
	tok := p.peek()

	if mode == modeLHS {
		if op, ok := compareOps[tok.Kind]; ok {
			p.next()
			item.Op = op
			item.Value = p.singleExpr()
			return p.finishAttr(item)
		}
		if tok.Kind == lexer.In {
			p.next()
			item.Op = AttrIn
			item.Value = p.parseInInterval()
			return p.finishAttr(item)
		}
	}

	item.Op = AttrColon
	item.Value = p.parseValueSet()
	return p.finishAttr(item)
}

func (p *Parser) finishAttr(item *AttrItem) *AttrItem {
	if p.failed {
		return nil
	}
	return item
}

func (p *Parser) singleExpr() *ValueSetExpr {
	loc := p.tokenLoc(p.peek())
	e := p.parseExpr()
	return &ValueSetExpr{Kind: ValueSetExprKind, Exprs: []Expr{e}, Location: loc}
}

// parseInInterval parses the operand of "in": "(a, b)", "[a, b]" or any
// mix of brackets. ".." is accepted in place of ",".
func (p *Parser) parseInInterval() *ValueSetExpr {
	open := p.peek()
	vs := &ValueSetExpr{Kind: ValueSetIntervalKind, Location: p.tokenLoc(open)}
	switch open.Kind {
	case lexer.BracketL:
		vs.LowInc = true
	case lexer.ParenL:
	default:
		p.unexpectedToken(open, lexer.ParenL, lexer.BracketL)
		return vs
	}
	p.next()
	lo := p.parseBound()
	if !p.skip(lexer.DotDot) {
		p.expect(lexer.Comma)
	}
	hi := p.parseBound()
	vs.Exprs = []Expr{lo, hi}
	vs.HighInc = p.closeInterval()
	return vs
}

func (p *Parser) closeInterval() bool {
	tok := p.peek()
	switch tok.Kind {
	case lexer.BracketR:
		p.next()
		return true
	case lexer.ParenR:
		p.next()
		return false
	}
	p.unexpectedToken(tok, lexer.ParenR, lexer.BracketR)
	return false
}

var siteKeywords = map[lexer.Type]SiteItemKind{
	lexer.Free:    SiteItemFree,
	lexer.Occ:     SiteItemOcc,
	lexer.Bind:    SiteItemBind,
	lexer.Release: SiteItemRelease,
	lexer.Replace: SiteItemReplace,
}

var allowedSites = map[entityMode][]lexer.Type{
	modeLHS:  {lexer.Free, lexer.Occ, lexer.Name},
	modeRHS:  {lexer.Bind, lexer.Release, lexer.Replace},
	modeInit: {lexer.Free, lexer.Name},
}

func (p *Parser) parseSiteItem(mode entityMode) *SiteItem {
	tok := p.peek()
	item := &SiteItem{Location: p.tokenLoc(tok)}
	switch {
	case tok.Kind == lexer.Name:
		item.Name = tok.Value
	case tok.Kind == lexer.Star && mode == modeRHS:
		item.Name = WildcardSite
	default:
		p.unexpectedToken(tok, lexer.Name)
		return nil
	}
	p.next()
	p.expect(lexer.Colon)

	target := p.peek()
	allowed := allowedSites[mode]
	ok := false
	for _, k := range allowed {
		if k == target.Kind {
			ok = true
		}
	}
	if !ok {
		p.unexpectedToken(target, allowed...)
		return nil
	}

	if kind, isKeyword := siteKeywords[target.Kind]; isKeyword {
		p.next()
		item.Kind = kind
		return item
	}
	item.Kind = SiteItemEntity
	item.Entity = p.parseEntity(mode)
	if p.failed {
		return nil
	}
	return item
}

// parseInit parses init elements until one of the stop tokens.
func (p *Parser) parseInit(stop ...lexer.Type) []InitElem {
	var elems []InitElem
	for !p.failed {
		tok := p.peek()
		if tok.Kind == lexer.EOF || isStop(tok.Kind, stop) {
			break
		}
		if len(elems) > 0 && tok.Kind.IsEntitySeparator() {
			p.next()
			tok = p.peek()
		}
		switch {
		case tok.Kind == lexer.For:
			if loop := p.parseForLoop(); loop != nil {
				elems = append(elems, loop)
			}
		case isExprStart(tok.Kind):
			if entry := p.parseInitEntry(); entry != nil {
				elems = append(elems, entry)
			}
		default:
			p.unexpectedToken(tok)
		}
	}
	return elems
}

func isStop(kind lexer.Type, stop []lexer.Type) bool {
	for _, s := range stop {
		if kind == s {
			return true
		}
	}
	return false
}

func (p *Parser) parseInitEntry() *InitEntry {
	start := p.peek()
	entry := &InitEntry{Location: p.tokenLoc(start)}
	entry.Count = p.parseExpr()
	if tok := p.peek(); !p.failed && (tok.Kind != lexer.Name || !p.IsSpecies(tok.Value)) {
		if tok.Kind == lexer.Name {
			err := NewError(UndeclaredSpeciesErr, p.tokenLoc(tok), "species %v is not defined", tok.Value)
			err.Details = suggestionDetails{levenshtein.Suggest(tok.Value, maps.Keys(p.species))}
			p.fail(err)
		} else {
			p.unexpectedToken(tok, lexer.Name)
		}
		return nil
	}
	entry.Entity = p.parseEntity(modeInit)
	if p.skip(lexer.BracketL) {
		entry.Contents = p.parseInit(lexer.BracketR)
		p.expect(lexer.BracketR)
	}
	if p.failed {
		return nil
	}
	return entry
}

func (p *Parser) parseForLoop() *ForLoop {
	start := p.expect(lexer.For)
	name := p.expect(lexer.Name)
	if tok := p.peek(); !isAssign(tok.Kind) {
		p.unexpectedToken(tok, lexer.Equals, lexer.Walrus)
		return nil
	}
	p.next()
	loop := &ForLoop{Var: name.Value, Location: p.tokenLoc(start)}
	loop.Domain = p.parseValueSet()
	p.expect(lexer.BraceL)
	loop.Body = p.parseInit(lexer.BraceR)
	p.expect(lexer.BraceR)
	if p.failed {
		return nil
	}
	return loop
}

var halfOpen = map[lexer.Type]struct{ lowInc, highInc, upper bool }{
	lexer.Less:      {false, false, true},
	lexer.LessEq:    {false, true, true},
	lexer.Greater:   {false, false, false},
	lexer.GreaterEq: {true, false, false},
}

// parseValueSet parses the right-hand side of a variable definition, an
// attribute declaration, a loop domain or an attribute value.
func (p *Parser) parseValueSet() *ValueSetExpr {
	tok := p.peek()
	loc := p.tokenLoc(tok)

	switch tok.Kind {
	case lexer.String:
		p.next()
		return &ValueSetExpr{Kind: ValueSetStringKind, Str: tok.Value, Location: loc}
	case lexer.BraceL:
		return p.parseSet()
	case lexer.Less, lexer.LessEq, lexer.Greater, lexer.GreaterEq:
		p.next()
		bound := p.parseExpr()
		h := halfOpen[tok.Kind]
		vs := &ValueSetExpr{Kind: ValueSetIntervalKind, LowInc: h.lowInc, HighInc: h.highInc, Location: loc}
		if h.upper {
			vs.Exprs = []Expr{&Literal{Value: math.Inf(-1), Location: loc}, bound}
		} else {
			vs.Exprs = []Expr{bound, &Literal{Value: math.Inf(1), Location: loc}}
		}
		return vs
	case lexer.BracketL, lexer.ParenL:
		if vs := p.tryIntervalOrVector(); vs != nil {
			return vs
		}
	}

	first := p.parseExpr()
	if !p.skip(lexer.Colon) {
		return &ValueSetExpr{Kind: ValueSetExprKind, Exprs: []Expr{first}, Location: loc}
	}
	vs := &ValueSetExpr{Kind: ValueSetRangeKind, Exprs: []Expr{first, p.parseExpr()}, Location: loc}
	if p.skip(lexer.Colon) {
		vs.Exprs = append(vs.Exprs, p.parseExpr())
	}
	return vs
}

// tryIntervalOrVector parses "[a..b]"-style intervals and "(a, b, ...)"
// vectors. It returns nil and rewinds if the input is a plain expression
// that merely starts with a bracket.
func (p *Parser) tryIntervalOrVector() *ValueSetExpr {
	m := p.mark()
	open := p.next()
	loc := p.tokenLoc(open)
	first := p.parseBound()

	switch tok := p.peek(); {
	case tok.Kind == lexer.DotDot:
		p.next()
		hi := p.parseBound()
		vs := &ValueSetExpr{Kind: ValueSetIntervalKind, Exprs: []Expr{first, hi}, LowInc: open.Kind == lexer.BracketL, Location: loc}
		vs.HighInc = p.closeInterval()
		return vs
	case tok.Kind == lexer.Comma && open.Kind == lexer.ParenL:
		vs := &ValueSetExpr{Kind: ValueSetVectorKind, Exprs: []Expr{first}, Location: loc}
		for p.skip(lexer.Comma) {
			vs.Exprs = append(vs.Exprs, p.parseExpr())
		}
		p.expect(lexer.ParenR)
		return vs
	}

	p.reset(m)
	return nil
}

func (p *Parser) parseSet() *ValueSetExpr {
	open := p.expect(lexer.BraceL)
	vs := &ValueSetExpr{Kind: ValueSetSetKind, Location: p.tokenLoc(open)}
	for p.peek().Kind != lexer.BraceR && !p.failed {
		if len(vs.Elems) > 0 {
			p.expect(lexer.Comma)
		}
		tok := p.peek()
		if tok.Kind == lexer.String {
			p.next()
			vs.Elems = append(vs.Elems, &ValueSetExpr{Kind: ValueSetStringKind, Str: tok.Value, Location: p.tokenLoc(tok)})
			continue
		}
		vs.Elems = append(vs.Elems, p.singleExpr())
	}
	p.expect(lexer.BraceR)
	return vs
}

// parseBound parses an interval bound, accepting inf and -inf.
func (p *Parser) parseBound() Expr {
	tok := p.peek()
	switch {
	case tok.Kind == lexer.Name && tok.Value == "inf":
		p.next()
		return &Literal{Value: math.Inf(1), Location: p.tokenLoc(tok)}
	case tok.Kind == lexer.Minus && p.peekN(1).Kind == lexer.Name && p.peekN(1).Value == "inf":
		p.next()
		p.next()
		return &Literal{Value: math.Inf(-1), Location: p.tokenLoc(tok)}
	}
	return p.parseExpr()
}

// parseExpr parses an arithmetic expression. Precedence from low to high:
// additive, multiplicative, unary sign, power and postfix operators,
// grouping.
func (p *Parser) parseExpr() Expr {
	x := p.parseMultiplicative()
	for !p.failed {
		tok := p.peek()
		var op Operator
		switch tok.Kind {
		case lexer.Plus:
			op = OpAdd
		case lexer.Minus:
			op = OpSub
		default:
			return x
		}
		p.next()
		y := p.parseMultiplicative()
		x = &BinaryExpr{Op: op, X: x, Y: y, Location: p.tokenLoc(tok)}
	}
	return x
}

func (p *Parser) parseMultiplicative() Expr {
	x := p.parseUnary()
	for !p.failed {
		tok := p.peek()
		var op Operator
		switch tok.Kind {
		case lexer.Star:
			op = OpMul
		case lexer.Slash:
			op = OpDiv
		default:
			return x
		}
		p.next()
		y := p.parseUnary()
		x = &BinaryExpr{Op: op, X: x, Y: y, Location: p.tokenLoc(tok)}
	}
	return x
}

func (p *Parser) parseUnary() Expr {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Minus:
		p.next()
		return &UnaryExpr{Op: OpSub, X: p.parseUnary(), Location: p.tokenLoc(tok)}
	case lexer.Plus:
		p.next()
		return &UnaryExpr{Op: OpAdd, X: p.parseUnary(), Location: p.tokenLoc(tok)}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() Expr {
	x := p.parsePostfix()
	if tok := p.peek(); tok.Kind == lexer.Caret {
		p.next()
		return &BinaryExpr{Op: OpPow, X: x, Y: p.parseUnary(), Location: p.tokenLoc(tok)}
	}
	return x
}

var postfixOps = map[lexer.Type]Operator{
	lexer.Square: OpSquare,
	lexer.Cube:   OpCube,
	lexer.Degree: OpDegrees,
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for !p.failed {
		tok := p.peek()
		op, ok := postfixOps[tok.Kind]
		if !ok {
			break
		}
		p.next()
		x = &PostfixExpr{Op: op, X: x, Location: p.tokenLoc(tok)}
	}
	return x
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	loc := p.tokenLoc(tok)

	switch tok.Kind {
	case lexer.Number:
		p.next()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.error(tok, "invalid number %v", tok.Value)
		}
		return &Literal{Value: f, Location: loc}
	case lexer.Name:
		p.next()
		return &Ref{Name: tok.Value, Location: loc}
	case lexer.Hash:
		p.next()
		name := p.expect(lexer.Name)
		return &CountRef{Species: name.Value, Location: loc}
	case lexer.Min, lexer.Max:
		p.next()
		call := &CallExpr{Func: tok.Kind.Name(), Location: loc}
		p.expect(lexer.ParenL)
		call.Args = append(call.Args, p.parseExpr())
		for p.skip(lexer.Comma) {
			call.Args = append(call.Args, p.parseExpr())
		}
		p.expect(lexer.ParenR)
		if len(call.Args) < 2 && !p.failed {
			p.error(tok, "%v requires at least two arguments", call.Func)
		}
		return call
	case lexer.ParenL:
		p.next()
		x := p.parseExpr()
		p.expect(lexer.ParenR)
		return x
	case lexer.BracketL:
		p.next()
		x := p.parseExpr()
		p.expect(lexer.BracketR)
		return &TruncExpr{X: x, Location: loc}
	}

	if !p.failed {
		p.unexpectedToken(tok, lexer.Number, lexer.Name, lexer.ParenL)
	}
	return &Literal{Location: loc}
}
