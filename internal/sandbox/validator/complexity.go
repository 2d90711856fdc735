package validator

import (
	"regexp"
	"unicode/utf8"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
)

// Limits are the complexity ceilings applied after the security scan.
type Limits struct {
	MaxLength int // characters
	MaxDepth  int // nesting of (), [] and {}
	MaxLoops  int // occurrences of for/while/do
}

// DefaultLimits returns the standard ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxLength: 10000,
		MaxDepth:  20,
		MaxLoops:  10,
	}
}

var loopKeyword = regexp.MustCompile(`\b(for|while|do)\b`)

func checkComplexity(code string, limits Limits) error {
	if n := utf8.RuneCountInString(code); n > limits.MaxLength {
		return tplerr.New(tplerr.TooLong, "code is %d characters, maximum is %d", n, limits.MaxLength)
	}
	if depth := NestingDepth(code); depth > limits.MaxDepth {
		return tplerr.New(tplerr.TooDeep, "nesting depth %d exceeds maximum %d", depth, limits.MaxDepth)
	}
	if loops := LoopCount(code); loops > limits.MaxLoops {
		return tplerr.New(tplerr.TooManyLoops, "%d loop statements exceed maximum %d", loops, limits.MaxLoops)
	}
	return nil
}

// NestingDepth returns the deepest bracket nesting in code. Like the
// security scan it reads raw text, so brackets inside strings count.
func NestingDepth(code string) int {
	depth, deepest := 0, 0
	for _, r := range code {
		switch r {
		case '(', '[', '{':
			depth++
			if depth > deepest {
				deepest = depth
			}
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return deepest
}

// LoopCount counts for/while/do keywords in code.
func LoopCount(code string) int {
	return len(loopKeyword.FindAllStringIndex(code, -1))
}
