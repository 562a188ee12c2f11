package graphics

import (
	"fmt"
	"sort"

	"github.com/autopeer-io/installer/internal/hardware/dmi"
)

// Policy is the GPU power-management configuration chosen for a model.
type Policy int

const (
	// NotApplicable means the model has no switchable graphics quirk.
	NotApplicable Policy = iota
	// PreferIntegrated blacklists the discrete GPU drivers.
	PreferIntegrated
	// Hybrid enables NVIDIA runtime power management with on-demand offload.
	Hybrid
)

func (p Policy) String() string {
	switch p {
	case NotApplicable:
		return "not-applicable"
	case PreferIntegrated:
		return "integrated"
	case Hybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Table maps firmware identities to a Policy. Build it with NewTable; the
// zero Table resolves everything to NotApplicable.
type Table struct {
	switchable map[dmi.Identity]struct{}
	integrated map[dmi.Identity]struct{}
}

// NewTable builds a Table from the switchable-graphics models and the subset
// of them that default to integrated mode. Every integrated entry must also
// be switchable.
func NewTable(switchable, integrated []dmi.Identity) (Table, error) {
	t := Table{
		switchable: make(map[dmi.Identity]struct{}, len(switchable)),
		integrated: make(map[dmi.Identity]struct{}, len(integrated)),
	}
	for _, id := range switchable {
		t.switchable[id] = struct{}{}
	}
	for _, id := range integrated {
		if _, ok := t.switchable[id]; !ok {
			return Table{}, fmt.Errorf("model %q defaults to integrated but is not switchable", id)
		}
		t.integrated[id] = struct{}{}
	}
	return t, nil
}

func mustTable(switchable, integrated []dmi.Identity) Table {
	t, err := NewTable(switchable, integrated)
	if err != nil {
		panic(err)
	}
	return t
}

// Switchable reports whether id supports switchable graphics.
func (t Table) Switchable(id dmi.Identity) bool {
	_, ok := t.switchable[id]
	return ok
}

// Lookup resolves id to a Policy.
func (t Table) Lookup(id dmi.Identity) Policy {
	if !t.Switchable(id) {
		return NotApplicable
	}
	if _, ok := t.integrated[id]; ok {
		return PreferIntegrated
	}
	return Hybrid
}

// Entry is one row of a Table.
type Entry struct {
	Identity dmi.Identity `json:"identity" yaml:"identity"`
	Policy   string       `json:"policy" yaml:"policy"`
}

// Entries lists every switchable model with its policy, sorted by identity.
func (t Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.switchable))
	for id := range t.switchable {
		entries = append(entries, Entry{Identity: id, Policy: t.Lookup(id).String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	return entries
}

// InstallTable is consulted against product_version when configuring a
// target root.
var InstallTable = mustTable(
	[]dmi.Identity{
		"addw1",
		"addw2",
		"gaze14",
		"gaze15",
		"oryp4",
		"oryp4-b",
		"oryp5",
		"oryp6",
	},
	[]dmi.Identity{
		"oryp4",
		"oryp4-b",
	},
)

// RuntimeTable is consulted against product_name by the runtime blacklist
// applier. It is narrower than InstallTable and is kept separate on purpose:
// the two lists come from different identity sources.
var RuntimeTable = mustTable(
	[]dmi.Identity{"oryp4", "oryp4-b"},
	nil,
)
