package config

import "slices"

// permissionModes are the values the CLI accepts for --permission-mode.
var permissionModes = []string{"acceptEdits", "bypassPermissions", "default", "dontAsk", "plan"}

// NormalizePermissionMode maps legacy permission mode names to current CLI values.
//
// Legacy mappings:
//   - "acceptAll" -> "bypassPermissions"
//   - "prompt" -> "default"
func NormalizePermissionMode(mode string) string {
	switch mode {
	case "acceptAll":
		return "bypassPermissions"
	case "prompt":
		return "default"
	default:
		return mode
	}
}

// ValidPermissionMode reports whether mode, after normalization, is accepted
// by the CLI. The empty mode is valid and means the CLI default.
func ValidPermissionMode(mode string) bool {
	return mode == "" || slices.Contains(permissionModes, NormalizePermissionMode(mode))
}
