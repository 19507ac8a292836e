package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/dimas1q/quick-estimate/internal/audit"
)

// BuildStatusNotificationBody builds the HTML body for a status change email
func BuildStatusNotificationBody(estimateName, newStatus string, entry audit.Entry) string {
	var rows strings.Builder
	for _, d := range entry.Details {
		if d.Text != "" {
			rows.WriteString(fmt.Sprintf(
				`<tr>
					<td colspan="3" style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				</tr>`,
				html.EscapeString(d.Text),
			))
			continue
		}
		rows.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; color: #999;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; font-weight: 600;">%s</td>
			</tr>`,
			html.EscapeString(d.Label),
			html.EscapeString(d.Old),
			html.EscapeString(d.New),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Estimate updated</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 0 0 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Estimate</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold;">%s</p>
			<p style="margin: 10px 0 0 0; font-size: 14px; color: #666;">New status</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; color: #667eea;">%s</p>
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #667eea; padding-bottom: 10px;">Changes</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tbody>
				%s
			</tbody>
		</table>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">This is an automated notification. The full change history is available in the application.</p>
	</div>
</body>
</html>`,
		html.EscapeString(estimateName),
		html.EscapeString(newStatus),
		rows.String(),
	)
}
