package litmus

import (
	"fmt"
	"strings"
)

// Normalized memory-order classes. Order strings are free-form labels from
// external configuration, so unknown spellings fall back to relaxed rather
// than failing.
const (
	orderRelaxed = "relaxed"
	orderAcquire = "acquire"
	orderRelease = "release"
	orderAcqRel  = "acq_rel"
	orderSeqCst  = "seq_cst"
)

func normalizeOrder(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sc", "seq_cst", "seqcst", "sequentially_consistent":
		return orderSeqCst
	case "acquire", "acq":
		return orderAcquire
	case "release", "rel":
		return orderRelease
	case "acq_rel", "acqrel", "acquire_release":
		return orderAcqRel
	default:
		return orderRelaxed
	}
}

// emitOp renders one non-branch operation at the given indent.
func (w *threadWalker) emitOp(n *TraceNode, indent int) error {
	switch op := n.Op.(type) {
	case *Load:
		return w.emitLoad(n, op, indent)
	case *Store:
		return w.emitStore(n, op, indent)
	case *RMW:
		return w.emitRMW(n, op, indent)
	case *Fence:
		return w.emitFence(n, op, indent)
	case *Retry:
		w.emitLine(indent, "/* retry */")
		return nil
	case *ReturnTrue:
		w.emitLine(indent, "/* return true */")
		return nil
	case *ReturnFalse:
		w.emitLine(indent, "/* return false */")
		return nil
	default:
		return fmt.Errorf("cannot export P%d:%d: unsupported operation type %s", n.ThreadID, n.SeqIndex, n.Op.Kind())
	}
}

func (w *threadWalker) emitLoad(n *TraceNode, op *Load, indent int) error {
	_, name, index, err := w.resolveAccess(n, op.AddressID, op.IndexID, op.MemberID)
	if err != nil {
		return err
	}
	result, err := w.resultName(n, op.ResultID)
	if err != nil {
		return err
	}
	order := normalizeOrder(op.MemoryOrder)

	if w.ex.dialect == DialectAtomics {
		w.emitLine(indent, fmt.Sprintf("%s = atomic_load_explicit(%s, memory_order_%s);",
			result, atomicsAddr(name, index), atomicsLoadOrder(order)))
		return nil
	}
	// Acquire and stronger use the stronger macro; relaxed stays plain.
	if order == orderAcquire || order == orderAcqRel || order == orderSeqCst {
		w.emitLine(indent, fmt.Sprintf("%s = smp_load_acquire(%s);", result, macroBareAddr(name, index)))
	} else {
		w.emitLine(indent, fmt.Sprintf("%s = READ_ONCE(%s);", result, macroDerefAddr(name, index)))
	}
	return nil
}

func (w *threadWalker) emitStore(n *TraceNode, op *Store, indent int) error {
	_, name, index, err := w.resolveAccess(n, op.AddressID, op.IndexID, op.MemberID)
	if err != nil {
		return err
	}
	value, err := w.valueText(n, op.ValueID)
	if err != nil {
		return err
	}
	order := normalizeOrder(op.MemoryOrder)

	if w.ex.dialect == DialectAtomics {
		w.emitLine(indent, fmt.Sprintf("atomic_store_explicit(%s, %s, memory_order_%s);",
			atomicsAddr(name, index), value, atomicsStoreOrder(order)))
		return nil
	}
	if order == orderRelease || order == orderAcqRel || order == orderSeqCst {
		w.emitLine(indent, fmt.Sprintf("smp_store_release(%s, %s);", macroBareAddr(name, index), value))
	} else {
		w.emitLine(indent, fmt.Sprintf("WRITE_ONCE(%s, %s);", macroDerefAddr(name, index), value))
	}
	return nil
}

// emitRMW exports a compare-and-swap. The macro dialect has no CAS
// primitive, so it degrades to a load followed by a conditional store; the
// atomics dialect stages the expected operand in a per-thread scratch
// location because compare_exchange takes it by address, then reads the
// scratch back to recover the "return old value" semantics.
func (w *threadWalker) emitRMW(n *TraceNode, op *RMW, indent int) error {
	_, name, index, err := w.resolveAccess(n, op.AddressID, op.IndexID, op.MemberID)
	if err != nil {
		return err
	}
	expected, err := w.valueText(n, op.ExpectedValueID)
	if err != nil {
		return err
	}
	desired, err := w.valueText(n, op.DesiredValueID)
	if err != nil {
		return err
	}
	result, err := w.resultName(n, op.ResultID)
	if err != nil {
		return err
	}

	if w.ex.dialect == DialectAtomics {
		succ := normalizeOrder(op.SuccessMemoryOrder)
		fail := casFailureOrder(normalizeOrder(op.FailureMemoryOrder))
		scratch := fmt.Sprintf("exp%d", w.scratch)
		w.scratch++
		w.emitLine(indent, fmt.Sprintf("int %s = %s;", scratch, expected))
		w.emitLine(indent, fmt.Sprintf("atomic_compare_exchange_strong_explicit(%s, &%s, %s, memory_order_%s, memory_order_%s);",
			atomicsAddr(name, index), scratch, desired, succ, fail))
		w.emitLine(indent, fmt.Sprintf("%s = %s;", result, scratch))
		return nil
	}

	w.emitLine(indent, fmt.Sprintf("%s = READ_ONCE(%s); /* CAS approximation: not atomic */", result, macroDerefAddr(name, index)))
	w.emitLine(indent, fmt.Sprintf("if (%s == %s) {", result, expected))
	w.emitLine(indent+1, fmt.Sprintf("WRITE_ONCE(%s, %s);", macroDerefAddr(name, index), desired))
	w.emitLine(indent, "}")
	return nil
}

var macroFences = map[string]bool{
	"smp_mb()":  true,
	"smp_rmb()": true,
	"smp_wmb()": true,
}

func (w *threadWalker) emitFence(n *TraceNode, op *Fence, indent int) error {
	// An unrecognized instruction survives the parse as a raw-text fence;
	// it is re-emitted as a comment so its text stays visible without
	// asserting semantics it never had.
	if op.MemoryOrder == "" && op.Raw != "" && !macroFences[op.Raw] {
		w.emitLine(indent, fmt.Sprintf("/* %s */", op.Raw))
		return nil
	}

	if w.ex.dialect == DialectAtomics {
		w.emitLine(indent, fmt.Sprintf("atomic_thread_fence(memory_order_%s);", fenceOrder(op.MemoryOrder)))
		return nil
	}
	if macroFences[op.Raw] {
		w.emitLine(indent, op.Raw+";")
		return nil
	}
	switch strings.ToLower(op.MemoryOrder) {
	case "rmb":
		w.emitLine(indent, "smp_rmb();")
	case "wmb":
		w.emitLine(indent, "smp_wmb();")
	default:
		w.emitLine(indent, "smp_mb();")
	}
	return nil
}

// fenceOrder maps a fence's free-form order label to a C11 fence order.
func fenceOrder(order string) string {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "rmb":
		return orderAcquire
	case "wmb":
		return orderRelease
	case "lwsync":
		return orderAcqRel
	default:
		switch n := normalizeOrder(order); n {
		case orderRelaxed:
			return orderSeqCst // a bare fence is a full fence
		default:
			return n
		}
	}
}

// atomicsLoadOrder downgrades orders a C11 load cannot carry.
func atomicsLoadOrder(order string) string {
	switch order {
	case orderAcquire, orderAcqRel:
		return orderAcquire
	case orderSeqCst:
		return orderSeqCst
	default:
		return orderRelaxed
	}
}

// atomicsStoreOrder downgrades orders a C11 store cannot carry.
func atomicsStoreOrder(order string) string {
	switch order {
	case orderRelease, orderAcqRel:
		return orderRelease
	case orderSeqCst:
		return orderSeqCst
	default:
		return orderRelaxed
	}
}

// casFailureOrder downgrades failure orders the target forbids: acquire and
// acq_rel requests map to relaxed.
func casFailureOrder(order string) string {
	if order == orderSeqCst {
		return orderSeqCst
	}
	return orderRelaxed
}

func macroDerefAddr(name, index string) string {
	if index != "" {
		return fmt.Sprintf("%s[%s]", name, index)
	}
	return "*" + name
}

func macroBareAddr(name, index string) string {
	if index != "" {
		return fmt.Sprintf("&%s[%s]", name, index)
	}
	return name
}

func atomicsAddr(name, index string) string {
	if index != "" {
		return fmt.Sprintf("&%s[%s]", name, index)
	}
	return name
}
