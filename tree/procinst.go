package tree

// A ProcInst is an XML processing instruction node.
type ProcInst struct {
	node
	Target string
	Data   string
}

// NewProcInst creates a detached processing instruction node.
func NewProcInst(target, data string) *ProcInst {
	return &ProcInst{Target: target, Data: data}
}

func (p *ProcInst) Kind() NodeKind { return ProcInstKind }

// CopyNode returns a parentless copy of the processing instruction.
func (p *ProcInst) CopyNode() Node {
	np := &ProcInst{Target: p.Target, Data: p.Data}
	np.tail = p.tail
	return np
}
