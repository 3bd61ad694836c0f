package naming

import (
	"fmt"
	"strings"
)

// AccountKey returns the normalized form of an account name used as the
// ledger index key.
func AccountKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CheckpointGroup returns the checkpoint group for a region key.
func CheckpointGroup(regionKey string) string {
	return strings.ToLower(strings.TrimSpace(regionKey))
}

// CheckpointObject returns the object (file) name holding a group's record.
func CheckpointObject(group string) string {
	return fmt.Sprintf("%s.json", group)
}

// CheckpointObjectKey returns the object key of a group's record under prefix.
func CheckpointObjectKey(prefix, group string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return CheckpointObject(group)
	}
	return fmt.Sprintf("%s/%s", prefix, CheckpointObject(group))
}
