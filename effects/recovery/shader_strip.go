package recovery

import (
	"fmt"
	"regexp"
	"strings"
)

// Expensive builtins replaced by constant stubs in recovery strategy 1,
// split by arity so the stub signatures stay valid.
var (
	expensiveUnary  = []string{"sin", "cos", "tan", "asin", "acos", "atan", "exp", "exp2", "log", "log2"}
	expensiveBinary = []string{"pow", "atan2"}

	unaryPatterns  = map[string]*regexp.Regexp{}
	binaryPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, name := range expensiveUnary {
		unaryPatterns[name] = regexp.MustCompile(`\b` + name + `\s*\(`)
	}
	for _, name := range expensiveBinary {
		binaryPatterns[name] = regexp.MustCompile(`\b` + name + `\s*\(`)
	}
}

const (
	unaryStubDef  = "fn stub_%s(x: f32) -> f32 { return 0.0; }\n"
	binaryStubDef = "fn stub_%s(x: f32, y: f32) -> f32 { return 0.0; }\n"
)

// stripExpensiveConstructs rewrites WGSL source so that known-expensive
// builtin calls (trig, pow, exp, log) become constant stubs and loop
// constructs are removed entirely. The result is syntactically valid but
// visually degraded; it exists to get a compilable program back after a
// driver rejects the real one.
func stripExpensiveConstructs(source string) string {
	var stubs strings.Builder
	out := source

	for _, name := range expensiveUnary {
		pattern := unaryPatterns[name]
		if pattern.MatchString(out) {
			out = pattern.ReplaceAllString(out, "stub_"+name+"(")
			stubs.WriteString(fmt.Sprintf(unaryStubDef, name))
		}
	}
	for _, name := range expensiveBinary {
		pattern := binaryPatterns[name]
		if pattern.MatchString(out) {
			out = pattern.ReplaceAllString(out, "stub_"+name+"(")
			stubs.WriteString(fmt.Sprintf(binaryStubDef, name))
		}
	}

	out = stripLoops(out)

	if stubs.Len() == 0 {
		return out
	}
	return stubs.String() + out
}

var loopKeyword = regexp.MustCompile(`\b(for|while|loop)\b`)

// stripLoops removes for/while/loop statements, including their brace-
// delimited bodies, from WGSL source.
func stripLoops(source string) string {
	for {
		loc := loopKeyword.FindStringIndex(source)
		if loc == nil {
			return source
		}

		// Find the body's opening brace, then cut through its match.
		open := strings.IndexByte(source[loc[1]:], '{')
		if open < 0 {
			return source
		}
		start := loc[1] + open
		depth := 0
		end := -1
		for i := start; i < len(source); i++ {
			switch source[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			return source
		}
		source = source[:loc[0]] + source[end:]
	}
}
