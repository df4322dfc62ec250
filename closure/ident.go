package closure

import (
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// reservedPrefix is used by remote frames for their own bookkeeping.
const reservedPrefix = "__goremote"

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "let": true, "static": true, "yield": true, "await": true,
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "arguments": true, "eval": true,
	"undefined": true, "NaN": true, "Infinity": true,
}

func checkName(name string) error {
	if !identifierPattern.MatchString(name) || reservedWords[name] {
		return &InvalidVariableError{Name: name, Reason: "not a valid identifier"}
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return &InvalidVariableError{Name: name, Reason: "names starting with " + reservedPrefix + " are reserved"}
	}
	return nil
}

// ValidName reports whether name can be declared as a closure variable.
func ValidName(name string) bool {
	return checkName(name) == nil
}
