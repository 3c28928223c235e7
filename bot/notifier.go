package bot

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/socialmux/socialmux/model"
	Logger "github.com/socialmux/socialmux/utils/log"
)

const maxNotifiedDetails = 600

// SlackReportNotifier pushes accepted content reports into a moderator
// channel through an incoming webhook. Delivery is best-effort: the report
// row is already committed by the time this runs.
type SlackReportNotifier struct {
	webhookUrl string
}

func NewSlackReportNotifier(webhookUrl string) *SlackReportNotifier {
	return &SlackReportNotifier{webhookUrl: webhookUrl}
}

func buildReportTargetBlock(report model.Report) slack.MixedElement {
	target := report.FeedUrl
	if report.EntryGuid != "" {
		target = fmt.Sprintf("entry `%s`", report.EntryGuid)
		if report.FeedUrl != "" {
			target += fmt.Sprintf(" in <%s|feed>", report.FeedUrl)
		}
	}
	return slack.NewTextBlockObject("mrkdwn", target, false, false)
}

func buildReportDetails(report model.Report) string {
	if report.Details == "" {
		return "_no details given_"
	}
	if len(report.Details) > maxNotifiedDetails {
		return report.Details[:maxNotifiedDetails] + "..."
	}
	return report.Details
}

// NotifyReport formats the report with its reporter and posts it. Errors are
// logged and dropped.
func (n *SlackReportNotifier) NotifyReport(report model.Report, reporter model.User) {
	blocks := []slack.Block{
		slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("*New %s report* from `%s`", report.Reason, reporter.Username), false, false)),
		slack.NewContextBlock("", buildReportTargetBlock(report)),
		slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", buildReportDetails(report), false, false)),
	}

	webhookMsg := &slack.WebhookMessage{
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	if err := slack.PostWebhook(n.webhookUrl, webhookMsg); err != nil {
		Logger.Log.Error(err)
	}
}
