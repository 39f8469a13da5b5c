package narrative

import (
	"regexp"
	"strings"
)

// AnnotationKind distinguishes the two inline marker forms.
type AnnotationKind string

const (
	AnnotationRoll   AnnotationKind = "ROLL"
	AnnotationUpdate AnnotationKind = "UPDATE"
)

// Annotation is one [ROLL: ...] or [UPDATE: ...] marker found in a narrative.
// Markers are presentation hints for the view; nothing interprets the body.
type Annotation struct {
	Kind  AnnotationKind
	Body  string
	Start int
	End   int
}

var annotationRe = regexp.MustCompile(`\[(ROLL|UPDATE):\s*([^\]]*)\]`)

// Annotations extracts every annotation marker in a narrative, in order.
func Annotations(text string) []Annotation {
	idx := annotationRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]Annotation, 0, len(idx))
	for _, m := range idx {
		out = append(out, Annotation{
			Kind:  AnnotationKind(text[m[2]:m[3]]),
			Body:  strings.TrimSpace(text[m[4]:m[5]]),
			Start: m[0],
			End:   m[1],
		})
	}
	return out
}
