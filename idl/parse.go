// Copyright 2025 the varlink authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idl

import "strings"

// parser is a hand-written recursive-descent reader over a byte slice.
// No grammar/parser-combinator library appears anywhere in the reference
// corpus this was grounded on, so this follows the standard library's
// own scanning style (a position cursor plus small lookahead helpers,
// as in go/scanner) rather than reaching for an external dependency.
type parser struct {
	src []byte
	pos int
}

func (p *parser) fail(msg string) error {
	line, col := lineCol(p.src, p.pos)
	return &ParseError{Offset: p.pos, Line: line, Column: col, Message: msg}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlnum(b byte) bool { return isLetter(b) || isDigit(b) }

// skipWS consumes whitespace and '#'-to-end-of-line comments, returning
// each comment's text (leading '#' and surrounding space stripped) in
// source order. Used both between top-level members (exterior form) and
// inside parameter/field lists (interior form) — in both places a
// comment attaches to whatever is parsed next (spec §4.G).
func (p *parser) skipWS() []string {
	var comments []string
	for !p.eof() {
		c := p.src[p.pos]
		if isSpace(c) {
			p.pos++
			continue
		}
		if c == '#' {
			start := p.pos + 1
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
			comments = append(comments, strings.TrimSpace(string(p.src[start:p.pos])))
			continue
		}
		break
	}
	return comments
}

func (p *parser) requireSpace() error {
	if p.eof() || !isSpace(p.src[p.pos]) {
		return p.fail("expected whitespace")
	}
	p.skipWS()
	return nil
}

func (p *parser) literal(s string) bool {
	if p.pos+len(s) > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+len(s)]) != s {
		return false
	}
	p.pos += len(s)
	return true
}

func (p *parser) expect(s string) error {
	if !p.literal(s) {
		return p.fail("expected " + s)
	}
	return nil
}

// matchesWord reports whether s occurs at the cursor as a whole word
// (not a prefix of a longer identifier), without consuming it.
func (p *parser) matchesWord(s string) bool {
	if p.pos+len(s) > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+len(s)]) != s {
		return false
	}
	next := p.pos + len(s)
	if next < len(p.src) && (isAlnum(p.src[next]) || p.src[next] == '_') {
		return false
	}
	return true
}

// parseFieldName parses a field/parameter/interface-segment name: a
// letter, then letters/digits/underscores.
func (p *parser) parseFieldName() (string, error) {
	start := p.pos
	if p.eof() || !isLetter(p.src[p.pos]) {
		return "", p.fail("expected a field name")
	}
	p.pos++
	for !p.eof() && (isAlnum(p.src[p.pos]) || p.src[p.pos] == '_') {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

// parseTypeName parses a custom type, method, or error name: an
// uppercase letter then letters/digits.
func (p *parser) parseTypeName() (string, error) {
	start := p.pos
	if p.eof() || p.src[p.pos] < 'A' || p.src[p.pos] > 'Z' {
		return "", p.fail("expected a capitalized name")
	}
	p.pos++
	for !p.eof() && isAlnum(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

// parseInterfaceName parses a reverse-domain interface name: a first
// segment of a letter followed by letters/digits/dashes, then one or
// more dot-separated segments each starting with an alphanumeric.
func (p *parser) parseInterfaceName() (string, error) {
	start := p.pos
	if p.eof() || !isLetter(p.src[p.pos]) {
		return "", p.fail("expected an interface name")
	}
	p.pos++
	for !p.eof() && (isAlnum(p.src[p.pos]) || p.src[p.pos] == '-') {
		p.pos++
	}
	foundDot := false
	for !p.eof() && p.src[p.pos] == '.' {
		foundDot = true
		p.pos++
		if p.eof() || !isAlnum(p.src[p.pos]) {
			break
		}
		p.pos++
		for !p.eof() && (isAlnum(p.src[p.pos]) || p.src[p.pos] == '-') {
			p.pos++
		}
	}
	if !foundDot {
		return "", p.fail("interface name must have at least one dot-separated segment")
	}
	return string(p.src[start:p.pos]), nil
}

var primitives = []struct {
	word string
	t    Type
}{
	{"bool", BoolType},
	{"int", IntType},
	{"float", FloatType},
	{"string", StringType},
	{"object", ObjectType},
}

func (p *parser) tryPrimitive() (Type, bool) {
	for _, prim := range primitives {
		if p.matchesWord(prim.word) {
			p.pos += len(prim.word)
			return prim.t, true
		}
	}
	return Type{}, false
}

func (p *parser) parseType() (Type, error) {
	if p.peek() == '?' {
		p.pos++
		inner, err := p.parseNonOptionalType()
		if err != nil {
			return Type{}, err
		}
		return OptionalOf(inner), nil
	}
	return p.parseNonOptionalType()
}

func (p *parser) parseNonOptionalType() (Type, error) {
	if p.literal("[]") {
		inner, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(inner), nil
	}
	if p.literal("[string]") {
		inner, err := p.parseType()
		if err != nil {
			return Type{}, err
		}
		return MapOf(inner), nil
	}
	return p.parseElementType()
}

func (p *parser) parseElementType() (Type, error) {
	if t, ok := p.tryPrimitive(); ok {
		return t, nil
	}
	if !p.eof() && p.src[p.pos] >= 'A' && p.src[p.pos] <= 'Z' {
		name, err := p.parseTypeName()
		if err != nil {
			return Type{}, err
		}
		return CustomRef(name), nil
	}
	if p.peek() == '(' {
		return p.parseInlineType()
	}
	return Type{}, p.fail("expected a type")
}

// lookParenKind scans from the cursor (which must be at an opening '(')
// to its matching ')' at depth 0, reporting whether a ':' occurs at
// depth 0 (struct-like) and whether the parens are empty. It does not
// move the cursor; callers still need to consume the content themselves
// via parseFieldList/parseVariantList.
func (p *parser) lookParenKind() (hasColon bool, empty bool, err error) {
	if p.peek() != '(' {
		return false, false, p.fail("expected '('")
	}
	depth := 0
	end := -1
	for i := p.pos + 1; i < len(p.src); i++ {
		switch p.src[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				end = i
			} else {
				depth--
			}
		case ':':
			if depth == 0 {
				hasColon = true
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return false, false, p.fail("unterminated '(', missing ')'")
	}
	empty = end == p.pos+1
	return hasColon, empty, nil
}

func (p *parser) parseInlineType() (Type, error) {
	hasColon, empty, err := p.lookParenKind()
	if err != nil {
		return Type{}, err
	}
	if empty {
		p.pos += 2
		return InlineObjectOf(), nil
	}
	if hasColon {
		fields, err := p.parseFieldList()
		if err != nil {
			return Type{}, err
		}
		return InlineObjectOf(fields...), nil
	}
	variants, err := p.parseVariantList()
	if err != nil {
		return Type{}, err
	}
	return InlineEnumOf(variants...), nil
}

// parseFieldList parses "(name: type, name: type, ...)", attaching any
// comments immediately preceding a field to that field (interior
// whitespace handling, spec §4.G).
func (p *parser) parseFieldList() ([]Field, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var fields []Field
	for {
		comments := p.skipWS()
		if p.peek() == ')' {
			p.pos++
			break
		}
		name, err := p.parseFieldName()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		p.skipWS()
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: name, Type: ty, Comments: comments})
		p.skipWS()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return fields, nil
		default:
			return nil, p.fail("expected ',' or ')'")
		}
	}
	return fields, nil
}

func (p *parser) parseVariantList() ([]string, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var variants []string
	for {
		p.skipWS()
		if p.peek() == ')' {
			p.pos++
			break
		}
		name, err := p.parseFieldName()
		if err != nil {
			return nil, err
		}
		variants = append(variants, name)
		p.skipWS()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return variants, nil
		default:
			return nil, p.fail("expected ',' or ')'")
		}
	}
	return variants, nil
}

func (p *parser) parseCustomTypeDecl() (CustomTypeDecl, error) {
	if err := p.expect("type"); err != nil {
		return CustomTypeDecl{}, err
	}
	if err := p.requireSpace(); err != nil {
		return CustomTypeDecl{}, err
	}
	name, err := p.parseTypeName()
	if err != nil {
		return CustomTypeDecl{}, err
	}
	p.skipWS()
	hasColon, empty, err := p.lookParenKind()
	if err != nil {
		return CustomTypeDecl{}, err
	}
	if empty {
		p.pos += 2
		return CustomTypeDecl{Name: name, Kind: CustomObject}, nil
	}
	if hasColon {
		fields, err := p.parseFieldList()
		if err != nil {
			return CustomTypeDecl{}, err
		}
		return CustomTypeDecl{Name: name, Kind: CustomObject, Fields: fields}, nil
	}
	variants, err := p.parseVariantList()
	if err != nil {
		return CustomTypeDecl{}, err
	}
	return CustomTypeDecl{Name: name, Kind: CustomEnum, Variants: variants}, nil
}

func (p *parser) parseMethod() (Method, error) {
	if err := p.expect("method"); err != nil {
		return Method{}, err
	}
	if err := p.requireSpace(); err != nil {
		return Method{}, err
	}
	name, err := p.parseTypeName()
	if err != nil {
		return Method{}, err
	}
	p.skipWS()
	inputs, err := p.parseFieldList()
	if err != nil {
		return Method{}, err
	}
	p.skipWS()
	if err := p.expect("->"); err != nil {
		return Method{}, err
	}
	p.skipWS()
	outputs, err := p.parseFieldList()
	if err != nil {
		return Method{}, err
	}
	return Method{Name: name, Inputs: inputs, Outputs: outputs}, nil
}

func (p *parser) parseError() (Error, error) {
	if err := p.expect("error"); err != nil {
		return Error{}, err
	}
	if err := p.requireSpace(); err != nil {
		return Error{}, err
	}
	name, err := p.parseTypeName()
	if err != nil {
		return Error{}, err
	}
	p.skipWS()
	fields, err := p.parseFieldList()
	if err != nil {
		return Error{}, err
	}
	return Error{Name: name, Fields: fields}, nil
}

func (p *parser) parseMemberAfterComments(comments []string) (Member, error) {
	switch {
	case p.matchesWord("type"):
		d, err := p.parseCustomTypeDecl()
		if err != nil {
			return Member{}, err
		}
		d.Comments = comments
		return Member{Kind: MemberCustomType, CustomType: d}, nil
	case p.matchesWord("method"):
		m, err := p.parseMethod()
		if err != nil {
			return Member{}, err
		}
		m.Comments = comments
		return Member{Kind: MemberMethod, Method: m}, nil
	case p.matchesWord("error"):
		e, err := p.parseError()
		if err != nil {
			return Member{}, err
		}
		e.Comments = comments
		return Member{Kind: MemberError, Error: e}, nil
	default:
		return Member{}, p.fail("expected 'type', 'method', or 'error'")
	}
}

// ParseInterface parses a complete Varlink interface description.
func ParseInterface(text string) (Interface, error) {
	p := &parser{src: []byte(text)}
	topComments := p.skipWS()
	if err := p.expect("interface"); err != nil {
		return Interface{}, err
	}
	if err := p.requireSpace(); err != nil {
		return Interface{}, err
	}
	name, err := p.parseInterfaceName()
	if err != nil {
		return Interface{}, err
	}

	var members []Member
	for {
		comments := p.skipWS()
		if p.eof() {
			break
		}
		m, err := p.parseMemberAfterComments(comments)
		if err != nil {
			return Interface{}, err
		}
		members = append(members, m)
	}
	return Interface{Name: name, Members: members, Comments: topComments}, nil
}

// ParseType parses a single standalone type expression, e.g. "?[]string".
func ParseType(text string) (Type, error) {
	p := &parser{src: []byte(text)}
	p.skipWS()
	t, err := p.parseType()
	if err != nil {
		return Type{}, err
	}
	p.skipWS()
	if !p.eof() {
		return Type{}, p.fail("unexpected trailing input")
	}
	return t, nil
}

// ParseMember parses a single standalone member declaration (a "type",
// "method", or "error" definition).
func ParseMember(text string) (Member, error) {
	p := &parser{src: []byte(text)}
	comments := p.skipWS()
	m, err := p.parseMemberAfterComments(comments)
	if err != nil {
		return Member{}, err
	}
	p.skipWS()
	if !p.eof() {
		return Member{}, p.fail("unexpected trailing input")
	}
	return m, nil
}
