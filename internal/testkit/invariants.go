package testkit

import (
	"fmt"
	"slices"
	"strings"
)

// CheckMemberOrder verifies the archive layout invariant: every object
// member (".o") precedes every other member.
func CheckMemberOrder(members []string) error {
	seenOther := ""
	for _, m := range members {
		if strings.HasSuffix(m, ".o") {
			if seenOther != "" {
				return fmt.Errorf("object member %q after non-object member %q", m, seenOther)
			}
			continue
		}
		if seenOther == "" {
			seenOther = m
		}
	}
	return nil
}

// CheckArgOrder verifies that each marker occurs in args and that the first
// occurrences appear in the given order.
func CheckArgOrder(args []string, markers ...string) error {
	prev := -1
	for _, m := range markers {
		idx := slices.Index(args, m)
		if idx < 0 {
			return fmt.Errorf("argument %q missing from %q", m, args)
		}
		if idx <= prev {
			return fmt.Errorf("argument %q at %d, want after %d in %q", m, idx, prev, args)
		}
		prev = idx
	}
	return nil
}
