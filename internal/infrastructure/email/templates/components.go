package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
	"strings"
)

type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="width: auto; margin-bottom: 16px;">
      <tr>
        <td style="border-radius: 6px; text-align: center; background-color: {{.BackgroundColor}};" align="center" bgcolor="{{.BackgroundColor}}">
          <a href="{{.URL}}" target="_blank" style="display: inline-block; padding: 12px 24px; font-size: 16px; font-weight: bold; text-decoration: none; border-radius: 6px; color: {{.TextColor}};">{{.Text}}</a>
        </td>
      </tr>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-size: 16px; margin: 0 0 16px 0;">{{.}}</p>`))

	codeTemplate = template.Must(template.New("emailCode").Parse(`
    <div style="margin: 8px 0 20px 0; padding: 16px; text-align: center; background-color: #1d1d1b; border-radius: 8px;">
      <span style="font-family: 'SFMono-Regular', Menlo, Consolas, monospace; font-size: 26px; letter-spacing: 3px; color: #f1e271;">{{.}}</span>
    </div>`))
)

func GetButton(props ButtonProps) string {
	target := sanitizeEmailURL(props.URL)
	if target == "" {
		log.Printf("Invalid or unsafe URL in email button: %s", props.URL)
		target = "#"
	}

	data := ButtonProps{
		Text:            props.Text,
		URL:             target,
		BackgroundColor: sanitizeColor(valueOr(props.BackgroundColor, "#f1e271")),
		TextColor:       sanitizeColor(valueOr(props.TextColor, "#1d1d1b")),
	}

	var buf bytes.Buffer
	if err := buttonTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing email button template: %v", err)
		return `<div style="color: red;">Button template error</div>`
	}
	return buf.String()
}

// GetParagraph renders escaped text.
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, text); err != nil {
		log.Printf("Error executing email paragraph template: %v", err)
		return `<div style="color: red;">Paragraph template error</div>`
	}
	return buf.String()
}

// GetCodeBlock renders a discount code in a large monospace box.
func GetCodeBlock(code string) string {
	var buf bytes.Buffer
	if err := codeTemplate.Execute(&buf, code); err != nil {
		log.Printf("Error executing email code template: %v", err)
		return GetParagraph(code)
	}
	return buf.String()
}

// sanitizeEmailURL keeps http, https and mailto links only.
func sanitizeEmailURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		log.Printf("Invalid email URL: %s, error: %v", rawURL, err)
		return ""
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme != "http" && scheme != "https" && scheme != "mailto" {
		log.Printf("Blocked unsafe URL scheme in email: %s", scheme)
		return ""
	}
	return parsedURL.String()
}

// sanitizeColor accepts #rgb and #rrggbb only
func sanitizeColor(color string) string {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		return "#000000"
	}

	hex := color[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return "#000000"
	}
	for _, char := range hex {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return "#000000"
		}
	}
	return color
}
