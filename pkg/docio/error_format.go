package docio

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var yamlLineRe = regexp.MustCompile(`\byaml: line (\d+):\s*`)

// Failure is one input that could not be processed.
type Failure struct {
	File string
	Err  error
}

// FormatFailures turns load and translation failures into a user-facing message.
func FormatFailures(failures []Failure) string {
	if len(failures) == 0 {
		return "Processing failed, but no additional details were provided."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of the inputs could not be processed.\n", len(failures))

	for _, f := range failures {
		msg, hint := classifyAndHint(f.Err)
		loc := deriveLocation(f.File, f.Err)

		fmt.Fprintf(&b, "- %s\n", msg)
		if loc != "" {
			fmt.Fprintf(&b, "  Location: %s\n", loc)
		}
		if hint != "" {
			fmt.Fprintf(&b, "  How to fix: %s\n", hint)
		}
		if f.Err != nil {
			fmt.Fprintf(&b, "  Details: %s\n", extractDetails(f.Err.Error()))
		}
	}

	return b.String()
}

func deriveLocation(file string, err error) string {
	if err == nil {
		return file
	}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); len(m) == 2 {
		if file == "" {
			return "line " + m[1]
		}
		return file + ":" + m[1]
	}
	return file
}

func classifyAndHint(err error) (msg, hint string) {
	switch {
	case err == nil:
		return "Unknown failure.", ""
	case errors.Is(err, fs.ErrNotExist):
		return "Input file does not exist.", "Check the path, or pass - to read from standard input."
	case errors.Is(err, ErrEmptyDocument):
		return "Input holds no document.", "Provide a YAML or JSON API description."
	case yamlLineRe.MatchString(err.Error()):
		return "Input is not valid YAML or JSON.", "Fix the syntax error at the reported line. JSON may use comments and trailing commas."
	}
	return "Processing error.", ""
}

// extractDetails keeps the innermost message, without the wrapping prefixes.
func extractDetails(s string) string {
	if m := yamlLineRe.FindStringIndex(s); m != nil {
		return strings.TrimSpace(s[m[1]:])
	}
	if idx := strings.LastIndex(s, ": "); idx != -1 && idx+2 < len(s) {
		return strings.TrimSpace(s[idx+2:])
	}
	return strings.TrimSpace(s)
}
