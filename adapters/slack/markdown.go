package slack

import (
	"regexp"
)

var (
	mdLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdHeading = regexp.MustCompile(`(?m)^#+\s*(.+)$`)
	mdBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// toSlackMarkdown rewrites common markdown into Slack's mrkdwn dialect so host
// replies written in markdown render properly: links become <url|text>,
// headings and **bold** become *bold*.
func toSlackMarkdown(text string) string {
	// links first, their brackets would otherwise collide with later rewrites
	result := mdLink.ReplaceAllString(text, "<$2|$1>")

	result = mdHeading.ReplaceAllStringFunc(result, func(match string) string {
		content := mdHeading.ReplaceAllString(match, "$1")
		content = mdBold.ReplaceAllString(content, "$1")
		return "*" + content + "*"
	})

	return mdBold.ReplaceAllString(result, "*$1*")
}
