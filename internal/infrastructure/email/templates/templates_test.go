package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiscountCodeEmailContent(t *testing.T) {
	require := require.New(t)

	html := GetDiscountCodeEmailContent(DiscountCodeEmailProps{
		Code:       "JSC-7QK2M9XZ",
		PercentOff: 12,
		ExpiresAt:  time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
		TicketsURL: "https://conf.zurichjs.com/tickets",
	})

	require.Contains(html, "JSC-7QK2M9XZ")
	require.Contains(html, "12% off")
	require.Contains(html, "Saturday 12 September 2026, 10:00 UTC")
	require.Contains(html, `href="https://conf.zurichjs.com/tickets"`)
}

func TestParagraphEscapes(t *testing.T) {
	require := require.New(t)

	html := GetParagraph("<script>alert(1)</script>")
	require.NotContains(html, "<script>")
	require.Contains(html, "&lt;script&gt;")
}

func TestButtonRejectsUnsafeURL(t *testing.T) {
	require := require.New(t)

	html := GetButton(ButtonProps{Text: "Go", URL: "javascript:alert(1)"})
	require.Contains(html, `href="#"`)
	require.False(strings.Contains(html, "javascript:"))
}

func TestLayoutWrapsContent(t *testing.T) {
	require := require.New(t)

	html := GetEmailLayout(EmailLayoutProps{Title: "Your code", Content: GetParagraph("hello")})
	require.Contains(html, "<title>Your code</title>")
	require.Contains(html, ">hello</p>")
	require.Contains(html, "https://conf.zurichjs.com")
}
