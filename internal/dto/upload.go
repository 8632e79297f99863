package dto

// Upload carries a validated image upload into the image use-case.
type Upload struct {
	Data        []byte
	ContentType string
}
