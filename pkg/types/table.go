package types

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxTableIDLength = 32

var tableIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]*$`)

// NormalizeTableID trims the label and checks it is a usable table identifier,
// such as "7", "VIP1" or "Takeout".
func NormalizeTableID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "":
		return "", fmt.Errorf("table id is required")
	case len(id) > MaxTableIDLength:
		return "", fmt.Errorf("table id %q exceeds %d characters", id, MaxTableIDLength)
	case !tableIDRe.MatchString(id):
		return "", fmt.Errorf("table id %q may only contain letters, digits, spaces, '-' and '_'", id)
	}
	return id, nil
}
