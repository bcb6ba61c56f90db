// Package calc evaluates calculations written in LaTeX-style math inside
// Markdown documents. A calculation is a math block that contains one of
// the calculation operators:
//   - `x := expr` defines a value (or `f(x) := expr` a function).
//   - `expr ==` evaluates and splices the formatted result after `==`.
//   - `x := expr ==` does both.
//   - `\text{unit} === expr` declares a custom unit for the rest of the run.
//   - `a => b` is reserved for symbolic derivation and always reports an
//     unsupported diagnostic.
//
// Quantities carry a dimension vector; addition requires equal dimensions,
// multiplication combines them, and arrays broadcast element-wise against
// scalars. Processing is strictly top-to-bottom: a reference to a name that
// is defined further down the document is an undefined variable.
//
// Engine.Process splices results into the document and Engine.Clear strips
// them again. Both re-scan the text on every call, so repeated runs are
// stable apart from the trailing run-metadata comment.
package calc
