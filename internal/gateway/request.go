package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"usergraph-portal/internal/domain"
	appErrors "usergraph-portal/pkg/errors"
)

// attachmentField is the form field name the backend expects the uploaded
// document under.
const attachmentField = "vehicle_document"

// OutgoingRequest is a fully shaped graph-fetch request body. The shape
// depends on attachment presence: a pure JSON body without one, multipart
// form data with exactly one file part otherwise.
//
// Attachment bytes are referenced only here and in the encoded body; they
// are never logged and are released with the request.
type OutgoingRequest struct {
	ContentType string
	Body        []byte

	// payloadJSON is the canonical encoding of the contact fields. The
	// cache key hashes this instead of Body because multipart boundaries
	// are random per encoding.
	payloadJSON []byte
	attachment  *domain.Attachment
}

// BuildGraphRequest shapes a validated contact input plus optional
// attachment into an outgoing request.
func BuildGraphRequest(contact domain.ContactInput, attachment *domain.Attachment) (*OutgoingRequest, error) {
	// Absent email is omitted entirely: the backend treats a null-valued
	// key as a provided value.
	payload := map[string]interface{}{"phone": contact.Phone}
	if contact.Email != "" {
		payload["email"] = contact.Email
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.NewInternal("failed to encode payload", err)
	}

	if attachment == nil {
		return &OutgoingRequest{
			ContentType: "application/json",
			Body:        payloadJSON,
			payloadJSON: payloadJSON,
		}, nil
	}

	body, contentType, err := encodeMultipart(payload, attachment)
	if err != nil {
		return nil, appErrors.NewInternal("failed to encode multipart body", err)
	}
	return &OutgoingRequest{
		ContentType: contentType,
		Body:        body,
		payloadJSON: payloadJSON,
		attachment:  attachment,
	}, nil
}

// encodeMultipart writes one file part plus one form field per contact
// field. Scalar fields are serialized as their string form, anything else
// as JSON text.
func encodeMultipart(payload map[string]interface{}, attachment *domain.Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
		attachmentField, attachment.Filename))
	header.Set("Content-Type", attachment.MIMEType())

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(attachment.Bytes); err != nil {
		return nil, "", err
	}

	for key, value := range payload {
		text, err := formFieldValue(value)
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField(key, text); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func formFieldValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", val), nil
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// HasAttachment reports whether the request carries a file part.
func (r *OutgoingRequest) HasAttachment() bool {
	return r.attachment != nil
}

// cacheKeyMaterial returns the request-dependent parts of the cache key.
func (r *OutgoingRequest) cacheKeyMaterial() []string {
	material := []string{string(r.payloadJSON)}
	if r.attachment != nil {
		material = append(material, r.attachment.Filename, string(r.attachment.Bytes))
	}
	return material
}

// bodyReader returns a fresh reader over the encoded body.
func (r *OutgoingRequest) bodyReader() *bytes.Reader {
	return bytes.NewReader(r.Body)
}
