package gram

import (
	"github.com/ava12/ipg/internal/ipgerr"
)

func duplicateRuleError(p pos, name string) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.DuplicateRuleError, "duplicate rule name %q", name)
}

func trailingBarError(p pos) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.TrailingBarError, "alternation cannot end with '|'")
}

func invalidModifierError(p pos, mod string) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.InvalidModifierError, "invalid rule modifier %q", mod)
}

func unclosedGroupError(p pos) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.UnclosedGroupError, "unclosed group, expected ')'")
}

func unclosedStringError(p pos) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.UnclosedStringError, "unclosed string literal, expected '\"'")
}

func unclosedCharClassError(p pos) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.UnclosedCharClassError, "unclosed character class, expected ']'")
}

func invalidRangeError(p pos, lo, hi string) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.InvalidRangeError, "invalid range [%s-%s]: %q is not less than %q", lo, hi, lo, hi)
}

func reservedCharError(p pos, ch byte) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.ReservedCharError, "unescaped reserved character %q in character class", ch)
}

func emptyGrammarError(p pos) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.EmptyGrammarError, "grammar defines no rules")
}

func unexpectedCharError(p pos, want string) *ipgerr.Error {
	return ipgerr.FormatPos(p, ipgerr.UnexpectedCharError, "expected %s", want)
}

func undefinedRuleError(name string) *ipgerr.Error {
	return ipgerr.Format(ipgerr.UndefinedRuleError, "undefined rule %q", name)
}

func unreachableRuleError(name string) *ipgerr.Error {
	return ipgerr.Format(ipgerr.UnreachableRuleError, "unreachable rule %q", name)
}
