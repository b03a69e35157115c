package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const missing = "-"

// MaskName hides all but the initial of the surname: "Ad Soyad" becomes
// "Ad S***". Single-word names are returned unchanged.
func MaskName(fullName string) string {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	last := parts[len(parts)-1]
	initial := []rune(last)[0]
	return strings.Join(parts[:len(parts)-1], " ") + " " + cases.Upper(language.Turkish).String(string(initial)) + "***"
}

// Decimal renders v in its shortest form with a decimal comma.
func Decimal(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
}

func absent(sec *float64) bool {
	return sec == nil || math.IsNaN(*sec)
}

// FormatSeconds renders a duration in seconds: 12.5 -> "12,5 sn".
func FormatSeconds(sec *float64) string {
	if absent(sec) {
		return missing
	}
	return Decimal(math.Max(0, *sec)) + " sn"
}

// FormatMinSec renders whole seconds as minutes and seconds: 125 -> "2:05 dk".
func FormatMinSec(sec *float64) string {
	if absent(sec) {
		return missing
	}
	s := int64(math.Floor(math.Max(0, *sec)))
	return fmt.Sprintf("%d:%02d dk", s/60, s%60)
}

// FormatMinutes renders seconds as decimal minutes: 120 -> "2,00 dk".
func FormatMinutes(sec *float64) string {
	if absent(sec) {
		return missing
	}
	m := math.Max(0, *sec) / 60
	return strings.Replace(strconv.FormatFloat(m, 'f', 2, 64), ".", ",", 1) + " dk"
}
