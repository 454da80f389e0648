package gmail

import (
	"encoding/base64"

	"google.golang.org/api/gmail/v1"
)

// ExtractBody decodes the plain-text body out of a Gmail message payload.
// Multipart messages contribute the concatenation of every text/plain
// part's decoded content; attachment-only parts are skipped and never
// followed. A flat payload falls back to its own body data. Malformed or
// empty payloads degrade to an empty string, never an error.
func ExtractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) > 0 {
		var body string
		for _, part := range payload.Parts {
			if part.MimeType != "text/plain" || part.Body == nil {
				continue
			}
			if part.Body.AttachmentId != "" && part.Body.Data == "" {
				continue
			}
			data, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err != nil {
				continue
			}
			body += string(data)
		}
		return body
	}

	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}

	return ""
}
