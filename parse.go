package litmus

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ParseOptions configures Parse.
type ParseOptions struct {
	// FallbackTitle is used as the test name when the header line carries
	// only an architecture token.
	FallbackTitle string
}

// Parse parses litmus test text into a trace graph. It accepts the
// pipe-table dialect and the C-style dialect, selecting between them by
// scanning for a "P0 | P1 | ..." header row. Structural problems (missing
// header, unbalanced braces, no recognizable threads) return an error;
// unknown instructions degrade to raw-text fence nodes instead.
func Parse(text string, opt ParseOptions) (*Graph, error) {
	p := &parser{
		opt:        opt,
		sharedInit: make(map[string]string),
		regInit:    make(map[regKey]string),
		locs:       make(map[string]bool),
		regs:       make(map[regKey]bool),
		consts:     NewConstantPool(nil),
		threads:    make(map[int]*threadProg),
	}
	if err := p.parse(text); err != nil {
		return nil, err
	}
	return p.materialize(), nil
}

type regKey struct {
	tid  int
	name string
}

// stmt is one parsed statement: either a leaf operation or a branch with
// nested bodies. Conditions are lowered after all threads have been parsed so
// that identifier resolution sees every discovered register and location.
type stmt struct {
	op     Operation
	branch *branchStmt
}

type branchStmt struct {
	condSrc string
	then    []stmt
	els     []stmt
}

type threadProg struct {
	tid   int
	stmts []stmt
}

type parser struct {
	opt ParseOptions

	arch string
	name string

	sharedInit map[string]string // location -> initial literal
	regInit    map[regKey]string // register -> initial literal

	locs     map[string]bool
	locOrder []string
	regs     map[regKey]bool
	regOrder []regKey
	consts   *ConstantPool

	threads  map[int]*threadProg
	tidOrder []int
}

func (p *parser) parse(text string) error {
	src := stripComments(text)

	header, rest, err := splitHeader(src)
	if err != nil {
		return err
	}
	if err := p.parseHeader(header); err != nil {
		return err
	}

	initBody, rest, err := extractInitBlock(rest)
	if err != nil {
		return err
	}
	p.parseInitBlock(initBody)
	p.parseLocationsDecl(src)

	lines := strings.Split(rest, "\n")
	if hdr := findPipeHeader(lines); hdr >= 0 {
		if err := p.parsePipeTable(lines, hdr); err != nil {
			return err
		}
	} else if err := p.parseCThreads(rest); err != nil {
		return err
	}
	if len(p.threads) == 0 {
		return ErrNoThreads
	}

	p.scanPostcondition(rest)
	return nil
}

// stripComments removes /* */ and (* *) block comments and // line comments,
// normalizes line endings, and expands tabs to spaces.
func stripComments(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\t", " ")

	var sb strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "/*"):
			if end := strings.Index(s[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(s)
			}
		case strings.HasPrefix(s[i:], "(*") && ocamlCommentAt(s, i):
			i += strings.Index(s[i+2:], "*)") + 4
		case strings.HasPrefix(s[i:], "//"):
			if end := strings.IndexByte(s[i:], '\n'); end >= 0 {
				i += end
			} else {
				i = len(s)
			}
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String()
}

// ocamlCommentAt reports whether the "(*" at i opens an OCaml-style comment.
// A C pointer dereference spells the same two bytes (READ_ONCE(*x),
// WRITE_ONCE(*x, 1)), so the token only counts as a comment when it is not
// immediately followed by an identifier or another '*' and a matching "*)"
// exists.
func ocamlCommentAt(s string, i int) bool {
	if i+2 < len(s) && (isIdentStart(s[i+2]) || s[i+2] == '*') {
		return false
	}
	return strings.Contains(s[i+2:], "*)")
}

// splitHeader returns the first non-empty line and the remaining text.
func splitHeader(s string) (header, rest string, err error) {
	for {
		nl := strings.IndexByte(s, '\n')
		var line string
		if nl < 0 {
			line, s = s, ""
		} else {
			line, s = s[:nl], s[nl+1:]
		}
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), s, nil
		}
		if nl < 0 {
			return "", "", ErrMissingHeader
		}
	}
}

func (p *parser) parseHeader(line string) error {
	fields := strings.Fields(line)
	switch {
	case len(fields) >= 2:
		p.arch = fields[0]
		p.name = strings.Join(fields[1:], " ")
	case len(fields) == 1 && p.opt.FallbackTitle != "":
		p.arch = fields[0]
		p.name = p.opt.FallbackTitle
	default:
		return ErrMissingHeader
	}
	return nil
}

// extractInitBlock returns the contents of the first balanced { ... } block
// and everything after its closing brace.
func extractInitBlock(s string) (body, rest string, err error) {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return "", "", ErrUnbalancedInit
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], s[i+1:], nil
			}
		}
	}
	return "", "", ErrUnbalancedInit
}

// parseInitBlock handles "name=value" and "thread:name=value" assignments.
func (p *parser) parseInitBlock(body string) {
	for _, raw := range strings.FieldsFunc(body, func(r rune) bool { return r == ';' || r == '\n' }) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "locations") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		lhs, rhs := strings.TrimSpace(line[:eq]), strings.TrimSpace(line[eq+1:])
		// Explicit-atomics init entries spell the location as [x].
		if strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]") {
			lhs = strings.TrimSpace(lhs[1 : len(lhs)-1])
		}
		if colon := strings.IndexByte(lhs, ':'); colon >= 0 {
			tid, err := strconv.Atoi(strings.TrimSpace(lhs[:colon]))
			if err != nil {
				continue
			}
			reg := strings.TrimSpace(lhs[colon+1:])
			p.regInit[regKey{tid, reg}] = rhs
			p.internReg(tid, reg)
			continue
		}
		// Shared initializer; the location itself is only materialized
		// once an instruction, condition, or locations clause names it.
		p.sharedInit[lhs] = rhs
	}
}

var reLocationsDecl = regexp.MustCompile(`\blocations\s*\[([^\]]*)\]`)

// parseLocationsDecl force-includes shared locations named in a
// "locations [a; b]" declaration anywhere in the file.
func (p *parser) parseLocationsDecl(src string) {
	m := reLocationsDecl.FindStringSubmatch(src)
	if m == nil {
		return
	}
	for _, name := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ';' || r == ',' }) {
		name = strings.TrimSpace(name)
		// Register references like "1:r0" may appear; only bare names
		// denote shared locations.
		if name == "" || strings.ContainsRune(name, ':') {
			continue
		}
		p.internLoc(name)
	}
}

func (p *parser) internLoc(name string) string {
	if !p.locs[name] {
		p.locs[name] = true
		p.locOrder = append(p.locOrder, name)
	}
	return "loc-" + name
}

func (p *parser) internReg(tid int, name string) string {
	k := regKey{tid, name}
	if !p.regs[k] {
		p.regs[k] = true
		p.regOrder = append(p.regOrder, k)
	}
	return fmt.Sprintf("reg-%d-%s", tid, name)
}

// internValue resolves an instruction value operand: "$1" and plain integers
// become constants, anything else a thread register.
func (p *parser) internValue(tid int, s string) string {
	s = strings.TrimSpace(s)
	lit := strings.TrimPrefix(s, "$")
	if _, err := strconv.ParseInt(lit, 0, 64); err == nil {
		return p.consts.Intern(lit)
	}
	return p.internReg(tid, s)
}

func (p *parser) thread(tid int) *threadProg {
	t, ok := p.threads[tid]
	if !ok {
		t = &threadProg{tid: tid}
		p.threads[tid] = t
		p.tidOrder = append(p.tidOrder, tid)
	}
	return t
}

// --- pipe-table dialect ---

var rePipeHeaderCell = regexp.MustCompile(`^P(\d+)$`)

// findPipeHeader returns the index of the "P0 | P1 | ..." row, or -1. A
// single-thread table has no pipe at all, so the only requirement is that
// every cell is a P<n> token.
func findPipeHeader(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || strings.ContainsRune(line, '(') {
			continue
		}
		ok := true
		for _, cell := range strings.Split(strings.TrimSuffix(strings.TrimSpace(line), ";"), "|") {
			if !rePipeHeaderCell.MatchString(strings.TrimSpace(strings.TrimSuffix(cell, ";"))) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

var rePostcondition = regexp.MustCompile(`^\s*[~!]?\s*(exists|forall|filter)\b`)

func (p *parser) parsePipeTable(lines []string, header int) error {
	var tids []int
	for _, cell := range strings.Split(strings.TrimSuffix(strings.TrimSpace(lines[header]), ";"), "|") {
		m := rePipeHeaderCell.FindStringSubmatch(strings.TrimSpace(strings.TrimSuffix(cell, ";")))
		if m == nil {
			continue
		}
		tid, _ := strconv.Atoi(m[1])
		tids = append(tids, tid)
		p.thread(tid)
	}

	for _, line := range lines[header+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if rePostcondition.MatchString(trimmed) || strings.HasPrefix(trimmed, "locations") {
			break
		}
		cells := strings.Split(strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(trimmed, ";")), ";"), "|")
		for i, cell := range cells {
			if i >= len(tids) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue // thread does not advance this row
			}
			op := p.parseInstruction(tids[i], cell)
			t := p.thread(tids[i])
			t.stmts = append(t.stmts, stmt{op: op})
		}
	}
	return nil
}

// Instruction cell matchers, tried in priority order; first match wins.
// Unmatched cells degrade to a raw-text fence so one unknown mnemonic never
// aborts the whole parse.
var instrMatchers = []func(p *parser, tid int, s string) (Operation, bool){
	matchFenceMnemonic,
	matchMovStore,
	matchMovLoad,
	matchPseudoStore,
	matchPseudoLoad,
	matchBracketHeuristic,
}

func (p *parser) parseInstruction(tid int, s string) Operation {
	for _, match := range instrMatchers {
		if op, ok := match(p, tid, s); ok {
			return op
		}
	}
	return &Fence{Raw: s}
}

var fenceMnemonics = map[string]string{
	"MFENCE": "sc",
	"SFENCE": "sfence",
	"LFENCE": "lfence",
	"SYNC":   "sc",
	"LWSYNC": "lwsync",
	"ISYNC":  "isync",
	"DSB":    "sc",
	"ISB":    "isb",
	"FENCE":  "sc",
	"SMP_MB": "sc",
}

func matchFenceMnemonic(p *parser, tid int, s string) (Operation, bool) {
	mn := strings.ToUpper(strings.TrimSpace(s))
	if order, ok := fenceMnemonics[mn]; ok {
		return &Fence{MemoryOrder: order, Raw: s}, true
	}
	if strings.HasPrefix(mn, "DMB") {
		return &Fence{MemoryOrder: "sc", Raw: s}, true
	}
	return nil, false
}

var (
	reMovStore = regexp.MustCompile(`^(?i)MOV\s+\[\s*([A-Za-z_]\w*)\s*\]\s*,\s*(\$?-?\w+)$`)
	reMovLoad  = regexp.MustCompile(`^(?i)MOV\s+([A-Za-z_]\w*)\s*,\s*\[\s*([A-Za-z_]\w*)\s*\]$`)
)

func matchMovStore(p *parser, tid int, s string) (Operation, bool) {
	m := reMovStore.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, false
	}
	return &Store{
		AddressID: p.internLoc(m[1]),
		ValueID:   p.internValue(tid, m[2]),
	}, true
}

func matchMovLoad(p *parser, tid int, s string) (Operation, bool) {
	m := reMovLoad.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, false
	}
	return &Load{
		AddressID: p.internLoc(m[2]),
		ResultID:  p.internReg(tid, m[1]),
	}, true
}

var (
	rePseudoStore = regexp.MustCompile(`^W\s*\[\s*([A-Za-z_]\w*)\s*\]\s*=\s*(\$?-?\w+)$`)
	rePseudoLoadL = regexp.MustCompile(`^R\s*\[\s*([A-Za-z_]\w*)\s*\]\s*=\s*([A-Za-z_]\w*)$`)
	rePseudoLoadR = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*R\s*\[\s*([A-Za-z_]\w*)\s*\]$`)
)

func matchPseudoStore(p *parser, tid int, s string) (Operation, bool) {
	m := rePseudoStore.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, false
	}
	return &Store{
		AddressID: p.internLoc(m[1]),
		ValueID:   p.internValue(tid, m[2]),
	}, true
}

func matchPseudoLoad(p *parser, tid int, s string) (Operation, bool) {
	s = strings.TrimSpace(s)
	if m := rePseudoLoadL.FindStringSubmatch(s); m != nil {
		return &Load{
			AddressID: p.internLoc(m[1]),
			ResultID:  p.internReg(tid, m[2]),
		}, true
	}
	if m := rePseudoLoadR.FindStringSubmatch(s); m != nil {
		return &Load{
			AddressID: p.internLoc(m[2]),
			ResultID:  p.internReg(tid, m[1]),
		}, true
	}
	return nil, false
}

var reBracketLoc = regexp.MustCompile(`\[\s*([A-Za-z_]\w*)\s*\]`)

// matchBracketHeuristic is the last resort for LD*/ST* opcodes with one
// bracketed location operand.
func matchBracketHeuristic(p *parser, tid int, s string) (Operation, bool) {
	s = strings.TrimSpace(s)
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return nil, false
	}
	opcode := strings.ToUpper(fields[0])
	isLoad := strings.HasPrefix(opcode, "LD")
	isStore := strings.HasPrefix(opcode, "ST")
	if !isLoad && !isStore {
		return nil, false
	}
	loc := reBracketLoc.FindStringSubmatch(s)
	if loc == nil {
		return nil, false
	}

	// The remaining non-bracket operand is the register (load) or value
	// (store).
	var operand string
	rest := strings.TrimSpace(s[len(fields[0]):])
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !strings.ContainsRune(part, '[') {
			operand = part
			break
		}
	}
	if operand == "" {
		return nil, false
	}
	if isLoad {
		return &Load{AddressID: p.internLoc(loc[1]), ResultID: p.internReg(tid, operand)}, true
	}
	return &Store{AddressID: p.internLoc(loc[1]), ValueID: p.internValue(tid, operand)}, true
}

// --- C-style dialect ---

var reCSignature = regexp.MustCompile(`P(\d+)\s*\(([^)]*)\)`)

func (p *parser) parseCThreads(rest string) error {
	for _, m := range reCSignature.FindAllStringSubmatchIndex(rest, -1) {
		tid, _ := strconv.Atoi(rest[m[2]:m[3]])
		open := strings.IndexByte(rest[m[1]:], '{')
		if open < 0 {
			return ErrUnclosedThread
		}
		start := m[1] + open + 1
		end, ok := matchBrace(rest, start-1)
		if !ok {
			return ErrUnclosedThread
		}
		stmts, err := p.parseCBody(tid, rest[start:end])
		if err != nil {
			return fmt.Errorf("P%d: %w", tid, err)
		}
		t := p.thread(tid)
		t.stmts = append(t.stmts, stmts...)
	}
	return nil
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// cFrame tracks one branch body being collected while walking a thread body.
type cFrame struct {
	branch  *branchStmt
	path    string // "then" or "else"
	stmts   []stmt
	braced  bool
	pending bool // waiting for '{' or a single statement
}

func (p *parser) parseCBody(tid int, body string) ([]stmt, error) {
	var top []stmt
	var stack []*cFrame

	appendStmt := func(st stmt) {
		if len(stack) > 0 {
			f := stack[len(stack)-1]
			f.stmts = append(f.stmts, st)
		} else {
			top = append(top, st)
		}
	}
	closeFrame := func() {
		f := stack[len(stack)-1]
		if f.path == HandleElse {
			f.branch.els = f.stmts
		} else {
			f.branch.then = f.stmts
		}
		stack = stack[:len(stack)-1]
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		// A pending un-braced if resolves to either a braced body or
		// exactly one statement. A nested un-braced if cannot be
		// tracked by the one-deep pending flag, so require braces.
		if len(stack) > 0 && stack[len(stack)-1].pending {
			f := stack[len(stack)-1]
			if line == "{" {
				f.pending, f.braced = false, true
				continue
			}
			if isIfLine(line) && !strings.Contains(line, "{") {
				return nil, ErrNestedUnbracedIf
			}
			f.pending, f.braced = false, false
			op := p.parseCStatement(tid, line)
			if op != nil {
				f.stmts = append(f.stmts, stmt{op: op})
			}
			closeFrame()
			continue
		}

		switch {
		case strings.HasPrefix(line, "if") && isIfLine(line):
			cond, remainder, ok := splitIfCondition(line)
			if !ok {
				appendStmt(stmt{op: &Fence{Raw: strings.TrimSuffix(line, ";")}})
				continue
			}
			b := &branchStmt{condSrc: cond}
			appendStmt(stmt{branch: b})
			switch {
			case strings.HasPrefix(remainder, "{"):
				stack = append(stack, &cFrame{branch: b, path: HandleThen, braced: true})
			case remainder == "":
				stack = append(stack, &cFrame{branch: b, path: HandleThen, pending: true})
			default:
				if isIfLine(remainder) {
					return nil, ErrNestedUnbracedIf
				}
				if op := p.parseCStatement(tid, remainder); op != nil {
					b.then = []stmt{{op: op}}
				}
			}

		case line == "} else {" || line == "}else{" || line == "} else{" || line == "}else {":
			if len(stack) == 0 {
				continue
			}
			f := stack[len(stack)-1]
			f.branch.then = f.stmts
			f.stmts = nil
			f.path = HandleElse

		case line == "else {" || line == "else{":
			// "}" already closed the then body on its own line;
			// reopen the same branch for its else body.
			if len(top) == 0 && len(stack) == 0 {
				continue
			}
			if b := lastBranch(top, stack); b != nil {
				stack = append(stack, &cFrame{branch: b, path: HandleElse, braced: true})
			}

		case line == "}":
			if len(stack) > 0 {
				closeFrame()
			}

		default:
			if op := p.parseCStatement(tid, line); op != nil {
				appendStmt(stmt{op: op})
			}
		}
	}
	if len(stack) > 0 {
		return nil, ErrUnclosedThread
	}
	return top, nil
}

// lastBranch returns the branch of the most recently appended branch
// statement visible at the current nesting position.
func lastBranch(top []stmt, stack []*cFrame) *branchStmt {
	stmts := top
	if len(stack) > 0 {
		stmts = stack[len(stack)-1].stmts
	}
	for i := len(stmts) - 1; i >= 0; i-- {
		if stmts[i].branch != nil {
			return stmts[i].branch
		}
	}
	return nil
}

func isIfLine(line string) bool {
	rest := strings.TrimPrefix(line, "if")
	return rest == "" || rest[0] == ' ' || rest[0] == '('
}

// splitIfCondition extracts the balanced (...) condition and returns the
// trimmed remainder of the line.
func splitIfCondition(line string) (cond, remainder string, ok bool) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return "", "", false
	}
	depth := 0
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return line[open+1 : i], strings.TrimSpace(line[i+1:]), true
			}
		}
	}
	return "", "", false
}

var (
	reDecl = regexp.MustCompile(`^(?:volatile\s+)?(?:unsigned\s+)?(?:int|long|char|intptr_t|int32_t|int64_t|uint32_t|uint64_t|atomic_int)\s*\**\s*([A-Za-z_]\w*)\s*(?:=\s*(.+?))?\s*;$`)
	reAssign = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*(.+?)\s*;?$`)

	reWriteOnce    = regexp.MustCompile(`^WRITE_ONCE\s*\(\s*\*?\s*([A-Za-z_]\w*)\s*(?:\[\s*(\w+)\s*\])?\s*,\s*(.+?)\s*\)\s*;?$`)
	reStoreRelease = regexp.MustCompile(`^smp_store_release\s*\(\s*[&*]?\s*([A-Za-z_]\w*)\s*,\s*(.+?)\s*\)\s*;?$`)
	reAtomicStore  = regexp.MustCompile(`^atomic_store_explicit\s*\(\s*[&*]?\s*([A-Za-z_]\w*)\s*,\s*(.+?)\s*,\s*memory_order_(\w+)\s*\)\s*;?$`)

	reReadOnce    = regexp.MustCompile(`^READ_ONCE\s*\(\s*\*?\s*([A-Za-z_]\w*)\s*(?:\[\s*(\w+)\s*\])?\s*\)$`)
	reLoadAcquire = regexp.MustCompile(`^smp_load_acquire\s*\(\s*[&*]?\s*([A-Za-z_]\w*)\s*\)$`)
	reAtomicLoad  = regexp.MustCompile(`^atomic_load_explicit\s*\(\s*[&*]?\s*([A-Za-z_]\w*)\s*,\s*memory_order_(\w+)\s*\)$`)

	reAtomicFence = regexp.MustCompile(`^atomic_thread_fence\s*\(\s*memory_order_(\w+)\s*\)\s*;?$`)
)

// parseCStatement parses one C-style statement into an operation. Plain
// local assignments return nil (dropped); anything unrecognized becomes a
// raw-text fence.
func (p *parser) parseCStatement(tid int, line string) Operation {
	switch line {
	case "smp_mb();", "smp_mb ();":
		return &Fence{MemoryOrder: "sc", Raw: "smp_mb()"}
	case "smp_rmb();", "smp_rmb ();":
		return &Fence{MemoryOrder: "rmb", Raw: "smp_rmb()"}
	case "smp_wmb();", "smp_wmb ();":
		return &Fence{MemoryOrder: "wmb", Raw: "smp_wmb()"}
	}
	if m := reAtomicFence.FindStringSubmatch(line); m != nil {
		return &Fence{MemoryOrder: m[1], Raw: line}
	}

	if m := reWriteOnce.FindStringSubmatch(line); m != nil {
		return p.storeOp(tid, m[1], m[2], m[3], "relaxed")
	}
	if m := reStoreRelease.FindStringSubmatch(line); m != nil {
		return p.storeOp(tid, m[1], "", m[2], "release")
	}
	if m := reAtomicStore.FindStringSubmatch(line); m != nil {
		return p.storeOp(tid, m[1], "", m[2], m[3])
	}

	if m := reDecl.FindStringSubmatch(line); m != nil {
		reg, init := m[1], strings.TrimSpace(m[2])
		p.internReg(tid, reg)
		if init == "" {
			return nil
		}
		if op := p.loadOp(tid, reg, init); op != nil {
			return op
		}
		if _, err := strconv.ParseInt(init, 0, 64); err == nil {
			p.regInit[regKey{tid, reg}] = init
		}
		return nil // plain initializer, no node
	}

	if m := reAssign.FindStringSubmatch(strings.TrimSuffix(line, ";")); m != nil {
		if op := p.loadOp(tid, m[1], strings.TrimSpace(m[2])); op != nil {
			return op
		}
		if p.regs[regKey{tid, m[1]}] {
			return nil // plain local assignment, dropped
		}
	}

	return &Fence{Raw: strings.TrimSuffix(line, ";")}
}

// loadOp recognizes the load-macro forms on the right-hand side of an
// assignment or initializer.
func (p *parser) loadOp(tid int, reg, rhs string) Operation {
	if m := reReadOnce.FindStringSubmatch(rhs); m != nil {
		op := &Load{
			AddressID:   p.internLoc(m[1]),
			ResultID:    p.internReg(tid, reg),
			MemoryOrder: "relaxed",
		}
		if m[2] != "" {
			op.IndexID = p.consts.Intern(m[2])
		}
		return op
	}
	if m := reLoadAcquire.FindStringSubmatch(rhs); m != nil {
		return &Load{
			AddressID:   p.internLoc(m[1]),
			ResultID:    p.internReg(tid, reg),
			MemoryOrder: "acquire",
		}
	}
	if m := reAtomicLoad.FindStringSubmatch(rhs); m != nil {
		return &Load{
			AddressID:   p.internLoc(m[1]),
			ResultID:    p.internReg(tid, reg),
			MemoryOrder: m[2],
		}
	}
	return nil
}

func (p *parser) storeOp(tid int, loc, index, value, order string) Operation {
	op := &Store{
		AddressID:   p.internLoc(loc),
		ValueID:     p.internValue(tid, value),
		MemoryOrder: order,
	}
	if index != "" {
		op.IndexID = p.consts.Intern(index)
	}
	return op
}

// --- postcondition scan ---

var (
	reExistsClause = regexp.MustCompile(`(?s)\b(?:exists|forall|filter)\b\s*\((.*?)\)\s*$`)
	rePostcondReg  = regexp.MustCompile(`(\d+)\s*:\s*([A-Za-z_]\w*)`)
)

// scanPostcondition declares registers that are constrained only in the
// postcondition clause.
func (p *parser) scanPostcondition(rest string) {
	m := reExistsClause.FindStringSubmatch(rest)
	if m == nil {
		return
	}
	for _, ref := range rePostcondReg.FindAllStringSubmatch(m[1], -1) {
		tid, err := strconv.Atoi(ref[1])
		if err != nil {
			continue
		}
		p.internReg(tid, ref[2])
	}
}

// --- graph materialization ---

func (p *parser) materialize() *Graph {
	g := &Graph{Arch: p.arch, Name: p.name}

	g.Memory = append(g.Memory, &MemoryVariable{
		ID:    "null",
		Name:  "NULL",
		Scope: ScopeConstants,
		Kind:  VarInt,
		Value: "0",
	})
	for _, v := range p.consts.Vars() {
		g.Memory = append(g.Memory, v)
	}
	for _, name := range p.locOrder {
		value := p.sharedInit[name]
		if value == "" {
			value = "0"
		}
		g.Memory = append(g.Memory, &MemoryVariable{
			ID:    "loc-" + name,
			Name:  name,
			Scope: ScopeShared,
			Kind:  VarInt,
			Value: value,
		})
	}
	for _, k := range p.regOrder {
		g.Memory = append(g.Memory, &MemoryVariable{
			ID:    fmt.Sprintf("reg-%d-%s", k.tid, k.name),
			Name:  k.name,
			Scope: ScopeLocals,
			Kind:  VarInt,
			Value: p.regInit[k],
		})
	}

	tids := append([]int(nil), p.tidOrder...)
	sort.Ints(tids)
	for _, tid := range tids {
		m := &threadMaterializer{p: p, g: g, tid: tid}
		m.emit(p.threads[tid].stmts, "", "")
	}

	// Lowering branch conditions may have interned new constants or
	// resolved init-only shared names after the initial copy.
	have := make(map[string]bool)
	for _, v := range g.Memory {
		have[v.ID] = true
	}
	for _, v := range p.consts.Vars() {
		if !have[v.ID] {
			g.Memory = append(g.Memory, v)
		}
	}
	for _, name := range p.locOrder {
		if !have["loc-"+name] {
			value := p.sharedInit[name]
			if value == "" {
				value = "0"
			}
			g.Memory = append(g.Memory, &MemoryVariable{
				ID:    "loc-" + name,
				Name:  name,
				Scope: ScopeShared,
				Kind:  VarInt,
				Value: value,
			})
		}
	}
	return g
}

// exit represents a dangling control-flow end awaiting its po successor.
type exitPoint struct {
	id     string
	handle string
}

type threadMaterializer struct {
	p   *parser
	g   *Graph
	tid int
	seq int
}

func (m *threadMaterializer) newNode(op Operation, branchID, branchPath string) *TraceNode {
	n := &TraceNode{
		ID:         fmt.Sprintf("t%d-%d", m.tid, m.seq),
		ThreadID:   m.tid,
		SeqIndex:   m.seq,
		Op:         op,
		BranchID:   branchID,
		BranchPath: branchPath,
	}
	m.seq++
	m.g.Nodes = append(m.g.Nodes, n)
	return n
}

func (m *threadMaterializer) link(exits []exitPoint, target string) {
	for _, e := range exits {
		m.g.Edges = append(m.g.Edges, RelationEdge{
			Source:       e.id,
			Target:       target,
			Type:         RelPO,
			SourceHandle: e.handle,
		})
	}
}

// emit materializes a statement list, wiring po edges between consecutive
// statements. It returns the dangling exits of the list.
func (m *threadMaterializer) emit(stmts []stmt, branchID, branchPath string) []exitPoint {
	var prev []exitPoint
	first := true
	for _, st := range stmts {
		if st.op != nil {
			n := m.newNode(st.op, branchID, branchPath)
			if !first {
				m.link(prev, n.ID)
			}
			first = false
			if IsTerminator(st.op) {
				prev = nil
			} else {
				prev = []exitPoint{{id: n.ID}}
			}
			continue
		}

		b := st.branch
		cond := m.p.lowerCond(m.tid, b.condSrc)
		n := m.newNode(&Branch{Cond: cond}, branchID, branchPath)
		if !first {
			m.link(prev, n.ID)
		}
		first = false

		prev = nil
		thenExits := m.emitBody(b.then, n.ID, HandleThen)
		prev = append(prev, thenExits...)
		if len(b.els) > 0 {
			prev = append(prev, m.emitBody(b.els, n.ID, HandleElse)...)
		} else {
			// Synthesized "skip the if-body" control path: the
			// else handle joins at the statement after the block.
			prev = append(prev, exitPoint{id: n.ID, handle: HandleElse})
		}
	}
	if first {
		return nil
	}
	return prev
}

// emitBody materializes one branch arm, wiring the handle edge from the
// branch node to the arm's first statement.
func (m *threadMaterializer) emitBody(stmts []stmt, branchID, handle string) []exitPoint {
	if len(stmts) == 0 {
		return []exitPoint{{id: branchID, handle: handle}}
	}
	firstSeq := m.seq
	exits := m.emit(stmts, branchID, handle)
	m.link([]exitPoint{{id: branchID, handle: handle}}, fmt.Sprintf("t%d-%d", m.tid, firstSeq))
	return exits
}

// lowerCond parses and lowers a raw condition string for one thread,
// resolving identifiers against the thread's registers first, then shared
// locations.
func (p *parser) lowerCond(tid int, src string) BranchCondition {
	resolve := func(name string) (string, bool) {
		if p.regs[regKey{tid, name}] {
			return fmt.Sprintf("reg-%d-%s", tid, name), true
		}
		if p.locs[name] {
			return "loc-" + name, true
		}
		if _, ok := p.sharedInit[name]; ok {
			return p.internLoc(name), true
		}
		return "", false
	}
	return BuildCondition(ParseCondExpr(src), resolve, p.consts)
}
