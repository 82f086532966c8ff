// Package redact masks personal data in free text before it reaches logs.
// Case transcripts are stored verbatim; only diagnostic output goes through here.
package redact

import "regexp"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: IBANs and fiscal codes contain digit runs the phone rule would eat.
var rules = []rule{
	{regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "[email]"},
	{regexp.MustCompile(`(?i)\bIT\d{2}[A-Z]\d{10}[0-9A-Z]{12}\b`), "[iban]"},
	{regexp.MustCompile(`(?i)\b[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]\b`), "[codice-fiscale]"},
	{regexp.MustCompile(`(?:(?:\+39|0039)[ .\-]?)?\b(?:3\d{2}|0\d{1,3})[ .\-]?\d{3,4}[ .\-]?\d{3,4}\b`), "[telefono]"},
}

// Apply masks every match and reports how many values were masked.
func Apply(s string) (string, int) {
	count := 0
	for _, r := range rules {
		matches := r.pattern.FindAllStringIndex(s, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s, count
}

// Text is Apply without the count.
func Text(s string) string {
	out, _ := Apply(s)
	return out
}
