package validate

const (
	MaxFileSize int64 = 10 * 1024 * 1024

	MinUsernameLen int = 3
	MaxUsernameLen int = 64

	MinPasswordLen int = 8
	MaxPasswordLen int = 72

	MinPromptLen int = 1
	MaxPromptLen int = 32 * 1024

	MaxFields int = 64
)

var (
	AllowedContentTypes = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
)
