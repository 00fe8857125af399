package xpath

type parser struct {
	src  string
	toks []tok
	pos  int
}

func parse(src string) (expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, queryErrf(src, "unexpected token after expression")
	}
	return e, nil
}

func (p *parser) peek() tok {
	if p.pos >= len(p.toks) {
		return tok{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() tok {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(k tokKind, what string) error {
	if p.peek().kind != k {
		return queryErrf(p.src, "expected %s", what)
	}
	p.pos++
	return nil
}

func (p *parser) parseOr() (expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.pos++
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		var op compareOp
		switch p.peek().kind {
		case tokEq:
			op = opEq
		case tokNeq:
			op = opNeq
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &compareExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseRelational() (expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op compareOp
		switch p.peek().kind {
		case tokLt:
			op = opLt
		case tokLte:
			op = opLte
		case tokGt:
			op = opGt
		case tokGte:
			op = opGte
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &compareExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op arithOp
		switch p.peek().kind {
		case tokPlus:
			op = opAdd
		case tokMinus:
			op = opSub
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &arithExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op arithOp
		switch p.peek().kind {
		case tokMul:
			op = opMul
		case tokDiv:
			op = opDiv
		case tokMod:
			op = opMod
		default:
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &arithExpr{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (expr, error) {
	if p.peek().kind == tokMinus {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negExpr{operand: operand}, nil
	}
	return p.parseUnion()
}

func (p *parser) parseUnion() (expr, error) {
	first, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokUnion {
		return first, nil
	}
	terms := []expr{first}
	for p.peek().kind == tokUnion {
		p.pos++
		term, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return &unionExpr{terms: terms}, nil
}

// nodeTypeNames are names that read as node tests, not functions, when
// followed by parentheses inside a path.
var nodeTypeNames = map[string]bool{
	"node":                   true,
	"text":                   true,
	"comment":                true,
	"processing-instruction": true,
}

func (p *parser) parsePath() (expr, error) {
	t := p.peek()
	switch t.kind {
	case tokSlash:
		p.pos++
		if !startsStep(p.peek().kind) {
			return &locationPath{abs: true}, nil
		}
		steps, err := p.parseRelativeSteps()
		if err != nil {
			return nil, err
		}
		return &locationPath{abs: true, steps: steps}, nil

	case tokDoubleSlash:
		p.pos++
		steps := []step{descendantOrSelfStep()}
		rest, err := p.parseRelativeSteps()
		if err != nil {
			return nil, err
		}
		return &locationPath{abs: true, steps: append(steps, rest...)}, nil

	case tokNumber:
		p.pos++
		return numberLit(t.num), nil

	case tokString:
		p.pos++
		return stringLit(t.text), nil

	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return p.parseFilterTail(inner)

	case tokName:
		if p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokLParen && !nodeTypeNames[t.text] {
			call, err := p.parseFunctionCall()
			if err != nil {
				return nil, err
			}
			return p.parseFilterTail(call)
		}
	}
	steps, err := p.parseRelativeSteps()
	if err != nil {
		return nil, err
	}
	return &locationPath{steps: steps}, nil
}

// parseFilterTail parses the predicates and continuation steps that may
// follow a primary expression.
func (p *parser) parseFilterTail(base expr) (expr, error) {
	preds, err := p.parsePredicates()
	if err != nil {
		return nil, err
	}
	var steps []step
	for {
		switch p.peek().kind {
		case tokSlash:
			p.pos++
		case tokDoubleSlash:
			p.pos++
			steps = append(steps, descendantOrSelfStep())
		default:
			if len(preds) == 0 && len(steps) == 0 {
				return base, nil
			}
			return &filteredPath{base: base, preds: preds, steps: steps}, nil
		}
		s, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
}

func (p *parser) parseFunctionCall() (expr, error) {
	name := p.next().text
	p.pos++ // consume '('
	call := &funcCall{name: name}
	if p.peek().kind == tokRParen {
		p.pos++
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.peek().kind != tokComma {
			break
		}
		p.pos++
	}
	if err := p.expect(tokRParen, "')' after function arguments"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) parseRelativeSteps() ([]step, error) {
	first, err := p.parseStep()
	if err != nil {
		return nil, err
	}
	steps := []step{first}
	for {
		switch p.peek().kind {
		case tokSlash:
			p.pos++
		case tokDoubleSlash:
			p.pos++
			steps = append(steps, descendantOrSelfStep())
		default:
			return steps, nil
		}
		s, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
}

func descendantOrSelfStep() step {
	return step{axis: axisDescendantOrSelf, test: nodeTest{kind: testNode}}
}

func (p *parser) parseStep() (step, error) {
	t := p.peek()
	switch t.kind {
	case tokDot:
		p.pos++
		s := step{axis: axisSelf, test: nodeTest{kind: testNode}}
		return p.attachPredicates(s)
	case tokDotDot:
		p.pos++
		s := step{axis: axisParent, test: nodeTest{kind: testNode}}
		return p.attachPredicates(s)
	case tokAt:
		p.pos++
		name := p.peek()
		if name.kind != tokName && name.kind != tokStar {
			return step{}, queryErrf(p.src, "expected attribute name after '@'")
		}
		p.pos++
		s := step{axis: axisAttribute, test: nodeTest{kind: testName, name: name.text}}
		return p.attachPredicates(s)
	case tokAxis:
		p.pos++
		ax, ok := axisByName(t.text)
		if !ok {
			return step{}, queryErrf(p.src, "unsupported axis %q", t.text)
		}
		test, err := p.parseNodeTest()
		if err != nil {
			return step{}, err
		}
		return p.attachPredicates(step{axis: ax, test: test})
	case tokName, tokStar:
		test, err := p.parseNodeTest()
		if err != nil {
			return step{}, err
		}
		return p.attachPredicates(step{axis: axisChild, test: test})
	}
	return step{}, queryErrf(p.src, "expected a location step")
}

func axisByName(name string) (axis, bool) {
	switch name {
	case "child":
		return axisChild, true
	case "descendant":
		return axisDescendant, true
	case "descendant-or-self":
		return axisDescendantOrSelf, true
	case "self":
		return axisSelf, true
	case "parent":
		return axisParent, true
	case "attribute":
		return axisAttribute, true
	}
	return 0, false
}

func (p *parser) parseNodeTest() (nodeTest, error) {
	t := p.peek()
	if t.kind == tokStar {
		p.pos++
		return nodeTest{kind: testName, name: "*"}, nil
	}
	if t.kind != tokName {
		return nodeTest{}, queryErrf(p.src, "expected a node test")
	}
	p.pos++
	if p.peek().kind != tokLParen || !nodeTypeNames[t.text] {
		return nodeTest{kind: testName, name: t.text}, nil
	}
	p.pos++ // consume '('
	test := nodeTest{}
	switch t.text {
	case "node":
		test.kind = testNode
	case "text":
		test.kind = testText
	case "comment":
		test.kind = testComment
	case "processing-instruction":
		test.kind = testProcInst
		if p.peek().kind == tokString {
			test.name = p.next().text
		}
	}
	if err := p.expect(tokRParen, "')' after node test"); err != nil {
		return nodeTest{}, err
	}
	return test, nil
}

func (p *parser) attachPredicates(s step) (step, error) {
	preds, err := p.parsePredicates()
	if err != nil {
		return step{}, err
	}
	s.preds = preds
	return s, nil
}

func (p *parser) parsePredicates() ([]expr, error) {
	var preds []expr
	for p.peek().kind == tokLBracket {
		p.pos++
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRBracket, "']'"); err != nil {
			return nil, err
		}
		preds = append(preds, e)
	}
	return preds, nil
}

func startsStep(k tokKind) bool {
	switch k {
	case tokName, tokStar, tokAt, tokDot, tokDotDot, tokAxis:
		return true
	}
	return false
}
