package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextBody_SinglePart(t *testing.T) {
	raw := "From: alerts@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: trade alert\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"BUY Symbol: AAPL Price: 123.45\r\n"

	body, err := PlainTextBody([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "BUY Symbol: AAPL Price: 123.45")
}

func TestPlainTextBody_MultipartPicksPlainPart(t *testing.T) {
	raw := "From: alerts@example.com\r\n" +
		"Subject: trade alert\r\n" +
		"Content-Type: multipart/alternative; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<b>SELL Symbol: NOPE Price: 1.00</b>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"SELL Symbol: TSLA Price: 250.10\r\n" +
		"--XYZ--\r\n"

	body, err := PlainTextBody([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "SELL Symbol: TSLA Price: 250.10")
	assert.NotContains(t, body, "<b>")
}

func TestPlainTextBody_QuotedPrintable(t *testing.T) {
	raw := "From: alerts@example.com\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"BUY Symbol: MSFT Price: 99.10=\r\n" +
		" now\r\n"

	body, err := PlainTextBody([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, body, "BUY Symbol: MSFT Price: 99.10 now")
}

func TestPlainTextBody_NotAMessage(t *testing.T) {
	_, err := PlainTextBody([]byte("totally not mime"))
	if err == nil {
		t.Fatalf("want parse error")
	}
}
