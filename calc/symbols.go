package calc

import (
	"math"
	"sort"
	"strconv"
)

type SymbolKind int

const (
	SymbolScalar SymbolKind = iota
	SymbolArray
	SymbolFunction
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolArray:
		return "array"
	case SymbolFunction:
		return "function"
	default:
		return "scalar"
	}
}

func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Symbol is one defined name. Values and functions get separate id
// sequences (v0, v1, … and f0, f1, …); the evaluator only ever keys on ids,
// so spellings such as `F_{1,2}` never reach a lookup.
type Symbol struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Display string     `json:"display"`
	Kind    SymbolKind `json:"kind"`
	Value   Quantity   `json:"value,omitempty"`
	Params  []string   `json:"params,omitempty"`
	Body    Expr       `json:"-"`
	Source  string     `json:"source,omitempty"`
}

// SymbolTable maps normalized names to symbols for one run.
type SymbolTable struct {
	ids     map[string]string
	entries map[string]*Symbol
	order   []string
	values  int
	funcs   int
}

func newSymbolTable() *SymbolTable {
	t := &SymbolTable{
		ids:     make(map[string]string),
		entries: make(map[string]*Symbol),
	}
	t.define(Symbol{Name: "π", Display: `\pi`, Kind: SymbolScalar, Value: scalarQuantity(math.Pi, Dimensionless)})
	return t
}

func (t *SymbolTable) resolve(name string) (string, bool) {
	id, ok := t.ids[name]
	return id, ok
}

func (t *SymbolTable) lookup(name string) (*Symbol, bool) {
	id, ok := t.resolve(name)
	if !ok {
		return nil, false
	}
	sym, ok := t.entries[id]
	return sym, ok
}

// define stores a symbol under its name. Redefining a name keeps its id
// when the symbol stays a value (or stays a function).
func (t *SymbolTable) define(sym Symbol) *Symbol {
	isFunc := sym.Kind == SymbolFunction
	if id, ok := t.ids[sym.Name]; ok {
		if prev := t.entries[id]; (prev.Kind == SymbolFunction) == isFunc {
			sym.ID = id
			t.entries[id] = &sym
			return &sym
		}
	}
	if isFunc {
		sym.ID = "f" + strconv.Itoa(t.funcs)
		t.funcs++
	} else {
		sym.ID = "v" + strconv.Itoa(t.values)
		t.values++
	}
	t.ids[sym.Name] = sym.ID
	t.entries[sym.ID] = &sym
	t.order = append(t.order, sym.ID)
	return &sym
}

func (t *SymbolTable) IsFunction(name string) bool {
	sym, ok := t.lookup(name)
	return ok && sym.Kind == SymbolFunction
}

// Symbols returns the current symbols in the order their ids were issued.
// Ids replaced by a definition of the other class are skipped.
func (t *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t.order))
	for _, id := range t.order {
		sym := t.entries[id]
		if t.ids[sym.Name] != id {
			continue
		}
		out = append(out, *sym)
	}
	return out
}

// names lists the defined names in sorted order.
func (t *SymbolTable) names() []string {
	out := make([]string, 0, len(t.ids))
	for name := range t.ids {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// runScope is the parser's view of one run: units from the registry,
// functions from the symbol table. While a function body is parsed its own
// name counts as a function so self reference parses and is caught by the
// recursion limit when called.
type runScope struct {
	units    *UnitRegistry
	symbols  *SymbolTable
	defining string
}

func (s runScope) IsUnit(name string) bool {
	return s.units.IsUnit(name)
}

func (s runScope) IsFunction(name string) bool {
	return (s.defining != "" && name == s.defining) || s.symbols.IsFunction(name)
}
