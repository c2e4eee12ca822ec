package cdp

import (
	"bytes"
	"strconv"
	"strings"
)

// Instruction names.
const (
	InstructionStore  = "STORE"
	InstructionRead   = "READ"
	InstructionDelete = "DELETE"
	InstructionDir    = "DIR"
)

// Command is one parsed instruction line.
type Command struct {
	// Line is the instruction line without its terminator.
	Line string

	// Instruction is the first space-separated token.
	Instruction string

	// Args are the remaining tokens.
	Args []string
}

// Argc returns the number of tokens, instruction included.
func (c *Command) Argc() int {
	return len(c.Args) + 1
}

// ParseCommand splits an instruction line on single spaces. The trailing
// "\n" and any "\r" before it are dropped, as are trailing empty tokens.
// It returns nil for an empty line.
//
// Parsing never fails: unknown instructions and wrong arities are
// classified by the dispatcher.
func ParseCommand(line []byte) *Command {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return nil
	}

	s := string(line)
	tokens := strings.Split(s, " ")
	for len(tokens) > 1 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}

	return &Command{
		Line:        s,
		Instruction: tokens[0],
		Args:        tokens[1:],
	}
}

// parseNonNegative parses a decimal integer >= 0. It returns -1 for
// anything else.
func parseNonNegative(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
