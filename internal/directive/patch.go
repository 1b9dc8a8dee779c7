package directive

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTool names the program in the provenance comment of appended directives.
const DefaultTool = "sshcheck"

// provenanceLayout is the timestamp format of the provenance comment.
const provenanceLayout = "2006-01-02 15:04:05"

// Patcher rewrites configuration text so that one directive holds one value.
// The zero value is ready to use.
type Patcher struct {
	// Now returns the time stamped on appended directives. Defaults to time.Now.
	Now func() time.Time

	// Tool is the program name in the provenance comment. Defaults to DefaultTool.
	Tool string
}

// Apply sets key to value in text and returns the new text.
//
// Only the global section, the text before the first Match block, is
// searched. There the first line assigning key, or a line commenting it out
// with a single '#', is replaced by "key value" and keeps its line
// terminator. Later lines are left alone. When the global section has no
// such line the directive is added under a provenance comment, before the
// first Match block if there is one and at the end of the file otherwise.
// A line inside a Match block is never rewritten.
//
// Apply is idempotent: applying the same key and value twice yields the
// text produced by the first application.
func (p *Patcher) Apply(text, key, value string) string {
	line := key + " " + value

	global := text
	match := matchBlockPattern.FindStringIndex(text)
	if match != nil {
		global = text[:match[0]]
	}

	if loc := patchPattern(key).FindStringIndex(global); loc != nil {
		return text[:loc[0]] + line + text[loc[1]:]
	}

	comment := fmt.Sprintf("# Added by %s on %s", p.tool(), p.now().Format(provenanceLayout))

	if match != nil {
		start := match[0]
		block := comment + "\n" + line + "\n\n"
		if start > 0 {
			block = "\n" + block
		}
		return text[:start] + block + text[start:]
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + "\n" + comment + "\n" + line + "\n"
}

func (p *Patcher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Patcher) tool() string {
	if p.Tool != "" {
		return p.Tool
	}
	return DefaultTool
}

// Apply sets key to value in text using the wall clock for provenance.
func Apply(text, key, value string) string {
	var p Patcher
	return p.Apply(text, key, value)
}
