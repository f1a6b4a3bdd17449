package model

import "io"

// Upload — файл, пришедший в multipart-поле запроса на создание.
type Upload struct {
	// Filename is the name supplied by the client.
	Filename string
	Size     int64
	Content  io.Reader
}
