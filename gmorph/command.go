/*
	This file holds types supporting command-line interaction with gmorph.
*/

package gmorph

import "strings"

// Version is the version of the gmorph code, fixed at compile time.
const Version = "0.1"

// Keys for setting optional arguments within the command line via
// "key=value" strings.
const (
	KeyTarget = "target"
)

var setKeys = map[string]bool{
	"target": true,
}

// Command packages a command name and its arguments for dispatch.  The first
// item in the string slice is the command name.  The other items are command
// arguments or optional settings of the form "<key>=<value>".
type Command []string

// String returns a space-separated command line.
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument, assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Parameter scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Parameter(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.Split(arg, "=")
			if len(elems) == 2 && elems[0] == key {
				value = elems[1]
				found = true
				return
			}
		}
	}
	return
}

// CommandArgs sets a variadic argument set of string pointers to command
// arguments, ignoring setting arguments of the form "<key>=<value>".  If
// there aren't enough arguments to set a target, the target is set to the
// empty string.  It returns an 'overflow' slice that has all arguments
// beyond those needed for targets.
func (cmd Command) CommandArgs(targets ...*string) (overflow []string) {
	overflow = make([]string, 0, len(cmd))
	for _, target := range targets {
		*target = ""
	}
	if len(cmd) < 2 {
		return
	}
	numTargets := len(targets)
	curTarget := 0
	for _, arg := range cmd[1:] {
		optionalSet := false
		elems := strings.Split(arg, "=")
		if len(elems) == 2 {
			_, optionalSet = setKeys[elems[0]]
		}
		if optionalSet {
			continue
		}
		if curTarget >= numTargets {
			overflow = append(overflow, arg)
		} else {
			*(targets[curTarget]) = arg
		}
		curTarget++
	}
	return
}
