package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// ExtractContent normalizes a message body into plain text for
// classification. Preference order: the top-level body, then the first
// text/plain part, then the snippet. Pure.
func ExtractContent(msg *gmail.Message) string {
	if msg.Payload == nil {
		return msg.Snippet
	}

	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBase64(msg.Payload.Body.Data)
	}

	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBase64(part.Body.Data)
		}
	}

	return msg.Snippet
}

// decodeBase64 decodes the URL-safe base64 variant the Gmail API uses for
// body payloads. The URL-safe alphabet is translated back to standard
// base64 and missing padding restored. Malformed data yields an empty
// string, never an error.
func decodeBase64(data string) string {
	s := strings.ReplaceAll(data, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// Header returns the value of the named header, case-insensitive.
func Header(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
