// Package templates renders the transactional email html
package templates

import (
	"bytes"
	"html/template"
	"log"
)

type EmailLayoutProps struct {
	Title      string
	Preheader  string
	Content    string
	FooterText string
	SiteURL    string
	SiteName   string
}

type emailTemplateData struct {
	Title      string
	Preheader  string
	Content    template.HTML // components are rendered through their own templates
	FooterText string
	SiteURL    string
	SiteName   string
}

var emailLayoutTemplate = template.Must(template.New("emailLayout").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>{{.Title}}</title>
    <style media="all" type="text/css">
      @media only screen and (max-width: 640px) {
        .main p, .main td, .main span { font-size: 16px !important; }
        .wrapper { padding: 12px !important; }
        .container { padding: 0 !important; width: 100% !important; }
        .main { border-radius: 0 !important; border-left-width: 0 !important; border-right-width: 0 !important; }
      }
    </style>
  </head>
  <body style="font-family: Helvetica, Arial, sans-serif; font-size: 16px; line-height: 1.4; background-color: #f2f2f0; margin: 0; padding: 0;">
    <span class="preheader" style="color: transparent; display: none; height: 0; max-height: 0; overflow: hidden; mso-hide: all; visibility: hidden; width: 0;">{{.Preheader}}</span>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="width: 100%; background-color: #f2f2f0;" width="100%" bgcolor="#f2f2f0">
      <tr>
        <td class="container" style="max-width: 560px; padding-top: 32px; width: 560px; margin: 0 auto;" width="560" valign="top">
          <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="main" style="background: #ffffff; border-top: 6px solid #f1e271; border-radius: 12px; width: 100%;" width="100%">
            <tr>
              <td class="wrapper" style="padding: 28px; vertical-align: top;" valign="top">
                {{.Content}}
              </td>
            </tr>
          </table>
          <div style="padding: 20px 0; text-align: center; color: #8a8a86; font-size: 13px;">
            {{.FooterText}}<br>
            <a href="{{.SiteURL}}" style="color: #8a8a86;">{{.SiteName}}</a>
          </div>
        </td>
      </tr>
    </table>
  </body>
</html>`))

func GetEmailLayout(props EmailLayoutProps) string {
	data := emailTemplateData{
		Title:      valueOr(props.Title, "ZurichJS Conf"),
		Preheader:  props.Preheader,
		Content:    template.HTML(props.Content),
		FooterText: valueOr(props.FooterText, "You asked us to email this code from the conference website."),
		SiteURL:    valueOr(sanitizeEmailURL(props.SiteURL), "https://conf.zurichjs.com"),
		SiteName:   valueOr(props.SiteName, "conf.zurichjs.com"),
	}

	var buf bytes.Buffer
	if err := emailLayoutTemplate.Execute(&buf, data); err != nil {
		log.Printf("Error executing email layout template: %v", err)
		return "<html><body>Template execution error</body></html>"
	}
	return buf.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
