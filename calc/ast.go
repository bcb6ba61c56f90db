package calc

// Expr is a node of a parsed calculation expression. The evaluator switches
// over the concrete types exhaustively.
type Expr interface {
	Pos() int
	exprNode()
}

type NumberLit struct {
	Value    float64
	Literal  string
	Position int
}

func (e *NumberLit) Pos() int { return e.Position }
func (e *NumberLit) exprNode() {}

// VarRef refers to a symbol by its normalized name. Raw keeps the spelling
// found in the source for messages.
type VarRef struct {
	Name     string
	Raw      string
	Position int
}

func (e *VarRef) Pos() int { return e.Position }
func (e *VarRef) exprNode() {}

type BinaryExpr struct {
	Left     Expr
	Operator TokenType
	Right    Expr
	Position int
}

func (e *BinaryExpr) Pos() int { return e.Position }
func (e *BinaryExpr) exprNode() {}

type UnaryExpr struct {
	Operator TokenType
	Right    Expr
	Position int
}

func (e *UnaryExpr) Pos() int { return e.Position }
func (e *UnaryExpr) exprNode() {}

type FracExpr struct {
	Num      Expr
	Den      Expr
	Position int
}

func (e *FracExpr) Pos() int { return e.Position }
func (e *FracExpr) exprNode() {}

// SqrtExpr is `\sqrt{x}` or, with Index set, `\sqrt[n]{x}`.
type SqrtExpr struct {
	Index    Expr
	Radicand Expr
	Position int
}

func (e *SqrtExpr) Pos() int { return e.Position }
func (e *SqrtExpr) exprNode() {}

// CallExpr calls a builtin function (Builtin set) or a function defined in
// the document.
type CallExpr struct {
	Name     string
	Builtin  bool
	Args     []Expr
	Position int
}

func (e *CallExpr) Pos() int { return e.Position }
func (e *CallExpr) exprNode() {}

type ArrayLit struct {
	Elements []Expr
	Position int
}

func (e *ArrayLit) Pos() int { return e.Position }
func (e *ArrayLit) exprNode() {}

type IndexExpr struct {
	Array    Expr
	Index    Expr
	Position int
}

func (e *IndexExpr) Pos() int { return e.Position }
func (e *IndexExpr) exprNode() {}

// UnitExpr attaches a unit to a value: `9.81 m/s^2`, `(a+b)\,\text{kJ}`.
// Spec is resolved against the unit registry when evaluated.
type UnitExpr struct {
	Value    Expr
	Spec     string
	Position int
	SpecPos  int
}

func (e *UnitExpr) Pos() int { return e.Position }
func (e *UnitExpr) exprNode() {}
