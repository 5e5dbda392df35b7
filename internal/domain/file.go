package domain

// File describes an uploaded blob in remote storage.
type File struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}
