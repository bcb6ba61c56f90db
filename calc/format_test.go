package calc

import (
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		value float64
		opts  FormatOptions
		want  string
	}{
		{5 * 9.81, FormatOptions{}, "49.05"},
		{2, FormatOptions{}, "2"},
		{1.0 / 3.0, FormatOptions{}, "0.3333"},
		{1.0 / 3.0, FormatOptions{Digits: 2}, "0.33"},
		{1234567, FormatOptions{}, `1.235 \cdot 10^{6}`},
		{0.0005, FormatOptions{}, `5 \cdot 10^{-4}`},
		{-12.5, FormatOptions{}, "-12.5"},
		{12340, FormatOptions{Notation: NotationEng}, `12.34 \cdot 10^{3}`},
		{1500, FormatOptions{Notation: NotationSci}, `1.5 \cdot 10^{3}`},
		{1234567, FormatOptions{Notation: NotationFixed}, "1235000"},
		{0, FormatOptions{}, "0"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.value, tt.opts); got != tt.want {
			t.Fatalf("FormatNumber(%v, %+v) = %q, want %q", tt.value, tt.opts, got, tt.want)
		}
	}
}

func TestFormatQuantityUnits(t *testing.T) {
	reg := NewUnitRegistry()
	energy := scalarQuantity(1000, dimEnergy)

	text, warn := FormatQuantity(energy, "", reg, FormatOptions{})
	if warn != nil || text != `1000\ \text{J}` {
		t.Fatalf("unexpected natural form %q (%v)", text, warn)
	}

	text, warn = FormatQuantity(energy, "kJ", reg, FormatOptions{})
	if warn != nil || text != `1\ \text{kJ}` {
		t.Fatalf("unexpected converted form %q (%v)", text, warn)
	}

	speed := scalarQuantity(25, dimVelocity)
	text, _ = FormatQuantity(speed, `\text{km}/\text{h}`, reg, FormatOptions{})
	if text != `90\ \text{km}/\text{h}` {
		t.Fatalf("unexpected speed %q", text)
	}
}

func TestFormatQuantityWarnings(t *testing.T) {
	reg := NewUnitRegistry()
	energy := scalarQuantity(1000, dimEnergy)

	text, warn := FormatQuantity(energy, "furlong", reg, FormatOptions{})
	if warn == nil || warn.Kind != KindUnknownUnit || warn.Severity != SeverityWarning {
		t.Fatalf("expected UnknownUnit warning, got %v", warn)
	}
	if text != `1000\ \text{J}` {
		t.Fatalf("expected SI fallback, got %q", text)
	}

	_, warn = FormatQuantity(energy, "kg", reg, FormatOptions{})
	if warn == nil || warn.Kind != KindIncompatibleDimensions {
		t.Fatalf("expected IncompatibleDimensions warning, got %v", warn)
	}
}

func TestFormatQuantityArray(t *testing.T) {
	reg := NewUnitRegistry()
	text, _ := FormatQuantity(arrayQuantity([]float64{2, 4, 6}, Dimensionless), "", reg, FormatOptions{})
	if text != "[2, 4, 6]" {
		t.Fatalf("unexpected array %q", text)
	}
	text, _ = FormatQuantity(arrayQuantity([]float64{1000, 2500}, baseDimension(dimLength, 1)), "km", reg, FormatOptions{})
	if text != `[1, 2.5]\ \text{km}` {
		t.Fatalf("unexpected converted array %q", text)
	}
}

func TestParseNotation(t *testing.T) {
	for _, in := range []string{"auto", "FIXED", " sci ", "eng", ""} {
		if _, err := ParseNotation(in); err != nil {
			t.Fatalf("ParseNotation(%q): %v", in, err)
		}
	}
	if _, err := ParseNotation("roman"); err == nil {
		t.Fatalf("expected error for unknown notation")
	}
}
