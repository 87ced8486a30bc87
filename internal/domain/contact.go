package domain

import (
	"mime"
	"path/filepath"
)

// ContactInput is a validated set of user-supplied contact fields.
// Phone is never empty after validation; Email is empty when the user
// provided none.
type ContactInput struct {
	Phone string `json:"phone" validate:"required,phonedigits"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Attachment is an optional uploaded document. Its presence switches the
// outbound backend request from a JSON body to multipart form data. The
// bytes live only for the lifecycle of one request and are never logged.
type Attachment struct {
	Filename string
	Bytes    []byte
}

// MIMEType infers the content type from the attachment's file extension,
// falling back to application/octet-stream.
func (a *Attachment) MIMEType() string {
	if t := mime.TypeByExtension(filepath.Ext(a.Filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
