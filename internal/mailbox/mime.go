package mailbox

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// PlainTextBody extracts the text/plain content of a raw RFC 822 message.
// Multipart messages get their text/plain parts concatenated; everything else
// returns the whole payload.
func PlainTextBody(raw []byte) (string, error) {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return "", fmt.Errorf("parse mime: %w", err)
	}

	ctype := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(ctype)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	boundary := params["boundary"]
	if boundary == "" {
		return decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	}

	var b strings.Builder
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse mime part: %w", err)
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if partType != "text/plain" {
			continue
		}
		text, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(b), nil
}
