package parser

import (
	"errors"
	"strconv"
	"strings"
)

// lexState is a state of the complex-number scanner. A complex number is
//
//	sign? mantissa (e|E) sign digits  sign mantissa (e|E) sign digits  j
//	\_________ real part ___________/ \________ imaginary part ______/
//
// with mantissa = digits ['.' digits*] | '.' digits. The real and imaginary
// parts are written back to back; the imaginary sign is mandatory and is the
// only boundary between them.
//
// Transitions (anything not listed rejects the candidate):
//
//	start        sign -> realSign      digit -> realInt     '.' -> realDot
//	realSign     digit -> realInt      '.' -> realDot
//	realDot      digit -> realFrac
//	realInt      digit -> realInt      '.' -> realFrac      e -> realExp
//	realFrac     digit -> realFrac     e -> realExp
//	realExp      sign -> realExpSign
//	realExpSign  digit -> realExpDigit
//	realExpDigit digit -> realExpDigit sign -> imagSign (split point)
//	imagSign     digit -> imagInt      '.' -> imagDot
//	imagDot      digit -> imagFrac
//	imagInt      digit -> imagInt      '.' -> imagFrac      e -> imagExp
//	imagFrac     digit -> imagFrac     e -> imagExp
//	imagExp      sign -> imagExpSign
//	imagExpSign  digit -> imagExpDigit
//	imagExpDigit digit -> imagExpDigit j -> accept
type lexState int

const (
	stateStart lexState = iota
	stateRealSign
	stateRealDot
	stateRealInt
	stateRealFrac
	stateRealExp
	stateRealExpSign
	stateRealExpDigit
	stateImagSign
	stateImagDot
	stateImagInt
	stateImagFrac
	stateImagExp
	stateImagExpSign
	stateImagExpDigit
	stateAccept
	stateReject
)

// ImaginaryUnit terminates every complex number.
const ImaginaryUnit = 'j'

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isSign(c byte) bool  { return c == '+' || c == '-' }
func isExp(c byte) bool   { return c == 'e' || c == 'E' }

// next returns the state reached from s on input c.
func next(s lexState, c byte) lexState {
	switch s {
	case stateStart:
		switch {
		case isSign(c):
			return stateRealSign
		case isDigit(c):
			return stateRealInt
		case c == '.':
			return stateRealDot
		}
	case stateRealSign:
		switch {
		case isDigit(c):
			return stateRealInt
		case c == '.':
			return stateRealDot
		}
	case stateRealDot:
		if isDigit(c) {
			return stateRealFrac
		}
	case stateRealInt:
		switch {
		case isDigit(c):
			return stateRealInt
		case c == '.':
			return stateRealFrac
		case isExp(c):
			return stateRealExp
		}
	case stateRealFrac:
		switch {
		case isDigit(c):
			return stateRealFrac
		case isExp(c):
			return stateRealExp
		}
	case stateRealExp:
		if isSign(c) {
			return stateRealExpSign
		}
	case stateRealExpSign:
		if isDigit(c) {
			return stateRealExpDigit
		}
	case stateRealExpDigit:
		switch {
		case isDigit(c):
			return stateRealExpDigit
		case isSign(c):
			return stateImagSign
		}
	case stateImagSign:
		switch {
		case isDigit(c):
			return stateImagInt
		case c == '.':
			return stateImagDot
		}
	case stateImagDot:
		if isDigit(c) {
			return stateImagFrac
		}
	case stateImagInt:
		switch {
		case isDigit(c):
			return stateImagInt
		case c == '.':
			return stateImagFrac
		case isExp(c):
			return stateImagExp
		}
	case stateImagFrac:
		switch {
		case isDigit(c):
			return stateImagFrac
		case isExp(c):
			return stateImagExp
		}
	case stateImagExp:
		if isSign(c) {
			return stateImagExpSign
		}
	case stateImagExpSign:
		if isDigit(c) {
			return stateImagExpDigit
		}
	case stateImagExpDigit:
		switch {
		case isDigit(c):
			return stateImagExpDigit
		case c == ImaginaryUnit:
			return stateAccept
		}
	}
	return stateReject
}

// scanComplexAt tries to read one complex number starting exactly at s[start].
// It returns the value and the index just past the imaginary unit.
func scanComplexAt(s string, start int) (complex128, int, bool) {
	state := stateStart
	split := -1
	for i := start; i < len(s); i++ {
		state = next(state, s[i])
		switch state {
		case stateReject:
			return 0, start, false
		case stateImagSign:
			split = i
		case stateAccept:
			re, okRe := parseFloatPart(s[start:split])
			im, okIm := parseFloatPart(s[split:i])
			if !okRe || !okIm {
				return 0, start, false
			}
			return complex(re, im), i + 1, true
		}
	}
	return 0, start, false
}

// parseFloatPart accepts out-of-range values as +-Inf or 0, as strconv reports them.
func parseFloatPart(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// ScanComplex extracts every complex number in s, left to right. Text that
// does not match the grammar is skipped one byte at a time, so a failed
// candidate never hides a valid number starting inside it.
func ScanComplex(s string) []complex128 {
	out := make([]complex128, 0)
	for i := 0; i < len(s); {
		if c, end, ok := scanComplexAt(s, i); ok {
			out = append(out, c)
			i = end
			continue
		}
		i++
	}
	return out
}

// hasImaginaryMarker reports whether s contains a 'j' directly after a digit.
func hasImaginaryMarker(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] == ImaginaryUnit && isDigit(s[i-1]) {
			return true
		}
	}
	return false
}

// FormatComplex renders c in the grammar ScanComplex reads, using the
// shortest representation that round-trips. Only finite values are
// representable.
func FormatComplex(c complex128) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(real(c), 'e', -1, 64))
	im := strconv.FormatFloat(imag(c), 'e', -1, 64)
	if !strings.HasPrefix(im, "-") {
		b.WriteByte('+')
	}
	b.WriteString(im)
	b.WriteByte(ImaginaryUnit)
	return b.String()
}
