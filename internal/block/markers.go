package block

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentx-labs/agentsync/internal/branding"
)

type syntax struct {
	open, close string
	beginRe     *regexp.Regexp
}

func newSyntax(open, close string) syntax {
	word := regexp.QuoteMeta(branding.Marker())
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(open) + word + `:begin ([A-Za-z0-9][A-Za-z0-9._-]*)` + regexp.QuoteMeta(close) + `$`)
	return syntax{open: open, close: close, beginRe: re}
}

func htmlSyntax() syntax { return newSyntax("<!-- ", " -->") }

func hashSyntax() syntax { return newSyntax("# ", "") }

func (s syntax) begin(id string) string {
	return s.open + branding.Marker() + ":begin " + id + s.close
}

func (s syntax) end(id string) string {
	return s.open + branding.Marker() + ":end " + id + s.close
}

// span locates one block by line index of its begin and end markers.
type span struct {
	id         string
	begin, end int
}

// scan finds terminated blocks in document order. A begin marker without a
// matching end is ordinary text.
func (s syntax) scan(lines []string) []span {
	var spans []span
	for i := 0; i < len(lines); i++ {
		m := s.beginRe.FindStringSubmatch(strings.TrimRight(lines[i], "\r"))
		if m == nil {
			continue
		}
		endLine := s.end(m[1])
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimRight(lines[j], "\r") == endLine {
				spans = append(spans, span{id: m[1], begin: i, end: j})
				i = j
				break
			}
		}
	}
	return spans
}

func (s syntax) render(b Block) (string, error) {
	content := strings.TrimRight(b.Content, "\n")
	endLine := s.end(b.ID)
	for _, line := range strings.Split(content, "\n") {
		if line == endLine {
			return "", fmt.Errorf("%w: %s", ErrMarkerInContent, b.ID)
		}
	}
	if content == "" {
		return s.begin(b.ID) + "\n" + endLine + "\n", nil
	}
	return s.begin(b.ID) + "\n" + content + "\n" + endLine + "\n", nil
}

// markers is the codec for delimited formats.
type markers struct {
	syntax  syntax
	prepend bool
}

func (c markers) Compose(existing []byte, p Payload) ([]byte, error) {
	want := make(map[string]Block, len(p.Blocks))
	for _, b := range p.Blocks {
		want[b.ID] = b
	}

	lines := strings.Split(string(existing), "\n")
	if len(existing) == 0 {
		lines = nil
	}
	spans := c.syntax.scan(lines)

	present := make(map[string]bool, len(spans))
	out := make([]string, 0, len(lines))
	next := 0
	for _, sp := range spans {
		out = append(out, lines[next:sp.begin]...)
		next = sp.end + 1

		b, keep := want[sp.id]
		if !keep || present[sp.id] {
			// Dropped block: take one adjacent blank line with it.
			if next < len(lines) && isBlank(lines[next]) {
				next++
			} else if len(out) > 0 && isBlank(out[len(out)-1]) {
				out = out[:len(out)-1]
			}
			continue
		}
		present[sp.id] = true
		text, err := c.syntax.render(b)
		if err != nil {
			return nil, err
		}
		out = append(out, strings.Split(strings.TrimSuffix(text, "\n"), "\n")...)
	}
	if next < len(lines) {
		out = append(out, lines[next:]...)
	}
	body := strings.Join(out, "\n")

	var added []string
	for _, b := range p.Blocks {
		if present[b.ID] {
			continue
		}
		text, err := c.syntax.render(b)
		if err != nil {
			return nil, err
		}
		added = append(added, text)
	}
	if len(added) == 0 {
		return []byte(body), nil
	}

	fresh := strings.Join(added, "\n")
	if c.prepend {
		if body == "" {
			return []byte(fresh), nil
		}
		return []byte(fresh + "\n" + body), nil
	}
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if body != "" {
		body += "\n"
	}
	return []byte(body + fresh), nil
}

// Managed encodes every block as id NUL content NUL, in document order.
func (c markers) Managed(doc []byte, _ []string) ([]byte, error) {
	lines := strings.Split(string(doc), "\n")
	var b strings.Builder
	for _, sp := range c.syntax.scan(lines) {
		b.WriteString(sp.id)
		b.WriteByte(0)
		b.WriteString(strings.Join(lines[sp.begin+1:sp.end], "\n"))
		b.WriteByte(0)
	}
	return []byte(b.String()), nil
}

func (c markers) Strip(doc []byte, _ []string) ([]byte, error) {
	out, err := c.Compose(doc, Payload{})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(out)) == "" {
		return nil, nil
	}
	return out, nil
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }
