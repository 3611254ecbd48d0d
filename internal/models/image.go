package models

// Image is an uploaded file as received at the HTTP boundary.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Empty reports whether no image bytes were supplied.
func (i *Image) Empty() bool {
	return i == nil || len(i.Data) == 0
}

// Size returns the number of bytes in the image.
func (i *Image) Size() int64 {
	if i == nil {
		return 0
	}
	return int64(len(i.Data))
}
