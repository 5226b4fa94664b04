package chat

// format.go converts model output into the HTML fragment the web client
// renders directly.

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	headingRe = regexp.MustCompile(`(?m)^(\s*\d+\.\s*)([^:<\n]+):`)
	olItemRe  = regexp.MustCompile(`^\d+\.\s+(.*)`)
	ulItemRe  = regexp.MustCompile(`^[-•*]\s+(.*)`)
	brRunRe   = regexp.MustCompile(`(?:<br>\s*){2,}`)
)

// FormatResponse converts model text into a safe HTML fragment. Input is
// escaped first, **bold** spans become <strong>, numbered headings like
// "1. Heading:" are bolded, consecutive numbered or bulleted lines are
// grouped into <ol>/<ul>, and remaining breaks collapse to single <br>
// tags.
func FormatResponse(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = html.EscapeString(text)
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = headingRe.ReplaceAllString(text, "$1<strong>$2</strong>:")

	var out []string
	inUL, inOL := false, false

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if m := olItemRe.FindStringSubmatch(stripped); m != nil {
			if !inOL {
				if inUL {
					out = append(out, "</ul>")
					inUL = false
				}
				out = append(out, "<ol>")
				inOL = true
			}
			out = append(out, "<li>"+m[1]+"</li>")
			continue
		}

		if m := ulItemRe.FindStringSubmatch(stripped); m != nil {
			if !inUL {
				if inOL {
					out = append(out, "</ol>")
					inOL = false
				}
				out = append(out, "<ul>")
				inUL = true
			}
			out = append(out, "<li>"+m[1]+"</li>")
			continue
		}

		if inUL {
			out = append(out, "</ul>")
			inUL = false
		}
		if inOL {
			out = append(out, "</ol>")
			inOL = false
		}

		if stripped == "" {
			out = append(out, "<br>")
		} else {
			out = append(out, stripped)
		}
	}

	if inUL {
		out = append(out, "</ul>")
	}
	if inOL {
		out = append(out, "</ol>")
	}

	formatted := strings.Join(out, "<br>")
	formatted = brRunRe.ReplaceAllString(formatted, "<br>")

	return strings.TrimSpace(formatted)
}
