package formulation

import "fmt"

// ZKey indexes the assignment variable z[i,v].
type ZKey struct {
	Station int
	Cluster int
}

// XKey indexes the transfer-step variable x[i,j,v,m].
type XKey struct {
	Origin  int
	Dest    int
	Cluster int
	Step    int
}

// VarKind tells which family a variable belongs to.
type VarKind int

const (
	KindAssign VarKind = iota
	KindTransfer
	KindTravel
)

// Meaning is the entry of the index-to-meaning table built alongside the
// model. Fields not relevant to Kind are zero.
type Meaning struct {
	Kind    VarKind
	Station int // z only
	Origin  int // x only
	Dest    int // x only
	Cluster int
	Step    int // x only
}

// Name renders the variable the way it appears in the flat solution dump:
// z[i,v], x[i,j,v,m] or s[v].
func (m Meaning) Name() string {
	switch m.Kind {
	case KindAssign:
		return fmt.Sprintf("z[%d,%d]", m.Station, m.Cluster)
	case KindTransfer:
		return fmt.Sprintf("x[%d,%d,%d,%d]", m.Origin, m.Dest, m.Cluster, m.Step)
	case KindTravel:
		return fmt.Sprintf("s[%d]", m.Cluster)
	default:
		return "?"
	}
}

// ZKey returns the assignment key of a KindAssign meaning.
func (m Meaning) ZKey() ZKey { return ZKey{Station: m.Station, Cluster: m.Cluster} }

// XKey returns the transfer key of a KindTransfer meaning.
func (m Meaning) XKey() XKey {
	return XKey{Origin: m.Origin, Dest: m.Dest, Cluster: m.Cluster, Step: m.Step}
}
