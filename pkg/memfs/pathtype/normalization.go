package pathtype

import (
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalization is a bitset of normalization transforms applied to a name
// before it is used for comparison (as a PathType's canonical form) or
// returned to a caller (as its display form). At most one of NFC/NFD may be
// set, and at most one of the three case-fold variants may be set; this is
// enforced by validate, which every PathType constructor calls.
type Normalization uint8

const (
	// NFC composes a name into Unicode Normalization Form C.
	NFC Normalization = 1 << iota
	// NFD decomposes a name into Unicode Normalization Form D.
	NFD
	// CaseFoldASCII folds only ASCII letters to lowercase.
	CaseFoldASCII
	// CaseFoldUnicode folds the full Unicode case-folding table to
	// lowercase.
	CaseFoldUnicode
	// CaseFoldTurkish folds using the Turkish dotted/dotless-I variant of
	// case folding.
	CaseFoldTurkish
)

// validate checks the at-most-one-of invariants described in spec.md §3.
func (n Normalization) validate() error {
	normCount := 0
	if n&NFC != 0 {
		normCount++
	}
	if n&NFD != 0 {
		normCount++
	}
	if normCount > 1 {
		return errors.New("at most one of NFC/NFD may be set")
	}

	foldCount := 0
	if n&CaseFoldASCII != 0 {
		foldCount++
	}
	if n&CaseFoldUnicode != 0 {
		foldCount++
	}
	if n&CaseFoldTurkish != 0 {
		foldCount++
	}
	if foldCount > 1 {
		return errors.New("at most one of the case-fold variants may be set")
	}

	return nil
}

// apply runs the normalization's transforms over s, in the order required by
// spec.md §4.1: Unicode normalization first, then case folding.
func (n Normalization) apply(s string) string {
	if n&NFC != 0 {
		s = norm.NFC.String(s)
	} else if n&NFD != 0 {
		s = norm.NFD.String(s)
	}

	switch {
	case n&CaseFoldASCII != 0:
		s = foldASCII(s)
	case n&CaseFoldUnicode != 0:
		s = cases.Fold().String(s)
	case n&CaseFoldTurkish != 0:
		// cases.Fold is locale-independent and does not special-case the
		// Turkish dotted/dotless I. We approximate Turkish case folding by
		// lower-casing with the Turkish locale (which does apply the I/ı
		// and İ/i correspondence) before running the ordinary Unicode fold,
		// so non-Turkish-specific characters still fold fully.
		s = cases.Lower(language.Turkish).String(s)
		s = cases.Fold().String(s)
	}

	return s
}

// foldASCII lowercases only the ASCII letters in s, leaving everything else
// (including any non-ASCII runes) untouched.
func foldASCII(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b >= 'A' && b <= 'Z' {
			out[i] = b - 'A' + 'a'
		}
	}
	return string(out)
}
