// Package markdown converts feed HTML into link-reference style markdown.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Translator converts HTML to markdown using html-to-markdown with
// "[text][n]" links and a deduplicated reference section.
type Translator struct {
	converter *md.Converter
}

// NewTranslator creates a Translator. Relative links are left as they are.
func NewTranslator() *Translator {
	converter := md.NewConverter("", true, &md.Options{
		LinkStyle:          "referenced",
		LinkReferenceStyle: "full",
	})
	return &Translator{converter: converter}
}

// Translate converts html. Plain text is valid input.
func (t *Translator) Translate(html string) (string, error) {
	out, err := t.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return DedupeReferences(out), nil
}

var (
	referenceDef = regexp.MustCompile(`^\[(\d+)\]: (\S+)(.*)$`)
	referenceUse = regexp.MustCompile(`\]\[(\d+)\]`)
)

// DedupeReferences merges reference definitions that point at the same
// target and renumbers them 1..n in order of first definition. Only the
// trailing block of definitions is read, and fenced code is left untouched.
func DedupeReferences(markdown string) string {
	body, defs := splitReferences(strings.TrimRight(markdown, " \t\r\n"))
	if len(defs) == 0 {
		return markdown
	}

	renumber := make(map[string]string, len(defs))
	byTarget := make(map[string]string, len(defs))
	lines := make([]string, 0, len(defs))
	for _, def := range defs {
		oldID, target := def[1], def[2]+def[3]
		if newID, ok := byTarget[target]; ok {
			renumber[oldID] = newID
			continue
		}
		newID := strconv.Itoa(len(lines) + 1)
		byTarget[target] = newID
		renumber[oldID] = newID
		lines = append(lines, "["+newID+"]: "+target)
	}

	body = strings.TrimRight(renumberUses(body, renumber), " \t\r\n")
	if body == "" {
		return strings.Join(lines, "\n")
	}
	return body + "\n\n" + strings.Join(lines, "\n")
}

// splitReferences separates the definitions html-to-markdown appends after
// the last blank line from the rest of the document.
func splitReferences(markdown string) (string, [][]string) {
	body, tail := "", markdown
	if i := strings.LastIndex(markdown, "\n\n"); i >= 0 {
		body, tail = markdown[:i], markdown[i+2:]
	}

	var defs [][]string
	for _, line := range strings.Split(tail, "\n") {
		def := referenceDef.FindStringSubmatch(line)
		if def == nil {
			return markdown, nil
		}
		defs = append(defs, def)
	}
	return body, defs
}

func renumberUses(body string, renumber map[string]string) string {
	lines := strings.Split(body, "\n")
	fenced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}
		lines[i] = referenceUse.ReplaceAllStringFunc(line, func(use string) string {
			if newID, ok := renumber[use[2:len(use)-1]]; ok {
				return "][" + newID + "]"
			}
			return use
		})
	}
	return strings.Join(lines, "\n")
}
