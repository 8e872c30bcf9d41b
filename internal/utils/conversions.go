// Package utils holds small generic helpers shared by the CLI and the
// admin update payloads.
package utils

// ToStringSlice filters the string members out of a decoded JSON array,
// such as the courses list on a profile.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
