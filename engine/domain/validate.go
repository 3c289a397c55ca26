package domain

import "fmt"

// ValidateAligned checks that two required input files are line-count
// aligned. Any partial result over misaligned inputs would be
// meaningless, so this must run before work is submitted.
func ValidateAligned(nameA string, countA int, nameB string, countB int) error {
	if countA != countB {
		detail := fmt.Sprintf("%s has %d lines, %s has %d", nameA, countA, nameB, countB)
		return NewConfigError(detail, ErrLineCountMismatch)
	}
	return nil
}
