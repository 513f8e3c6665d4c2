package routes

import "regexp"

var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)

// ValidExtension 仅接受字母与数字组成的扩展名，空串同样合法。
func ValidExtension(ext string) bool {
	return extensionPattern.MatchString(ext)
}
