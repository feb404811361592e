package internal

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"maunium.net/go/mautrix/event"
)

var (
	hexColorPattern      = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	mxcPattern           = regexp.MustCompile(`^mxc://[^/\s]+/[^/\s]+$`)
	codeLanguagePattern  = regexp.MustCompile(`^language-[\w-]+$`)
	linkTargetPattern    = regexp.MustCompile(`^_blank$`)
	replyFallbackPattern = regexp.MustCompile(`^> (?:\* )?<[^<>\s]+>`)
)

var (
	policiesOnce   sync.Once
	stripReplyHTML *bluemonday.Policy
	keepReplyHTML  *bluemonday.Policy
)

// allowedElements is the set of tags permitted in formatted message bodies.
var allowedElements = []string{
	"font", "del", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "p",
	"a", "ul", "ol", "sup", "sub", "li", "b", "i", "u", "strong", "em",
	"strike", "s", "code", "hr", "br", "div", "table", "thead", "tbody",
	"tr", "th", "td", "caption", "pre", "span", "img", "details", "summary",
}

func newMessagePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)

	p.AllowAttrs("data-mx-color", "data-mx-bg-color").Matching(hexColorPattern).OnElements("font", "span")
	p.AllowAttrs("color").Matching(hexColorPattern).OnElements("font")
	p.AllowAttrs("data-mx-spoiler").OnElements("span")

	p.AllowAttrs("href", "name").OnElements("a")
	p.AllowAttrs("target").Matching(linkTargetPattern).OnElements("a")

	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("img")
	p.AllowAttrs("alt", "title").OnElements("img")
	p.AllowAttrs("src").Matching(mxcPattern).OnElements("img")

	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("class").Matching(codeLanguagePattern).OnElements("code")

	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https", "ftp", "mailto", "magnet", "mxc")
	return p
}

func initPolicies() {
	policiesOnce.Do(func() {
		stripReplyHTML = newMessagePolicy()
		stripReplyHTML.SkipElementsContent("mx-reply")

		keepReplyHTML = newMessagePolicy()
		keepReplyHTML.AllowElements("mx-reply")
		keepReplyHTML.AllowNoAttrs().OnElements("mx-reply")
	})
}

// SanitizeHTML filters html down to the tags and attributes Matrix clients
// are expected to render. With removeReplyFallback the <mx-reply> block is
// dropped along with its content.
func SanitizeHTML(html string, removeReplyFallback bool) string {
	initPolicies()
	if removeReplyFallback {
		return stripReplyHTML.Sanitize(html)
	}
	return keepReplyHTML.Sanitize(html)
}

// RemovePlainReplyFallback strips the "> <@user:server> quoted" prefix that
// older clients put in the plain body of replies. Bodies that don't open
// with such a quote, or that consist of nothing but quote lines, are
// returned unchanged.
//
// Stripping is not idempotent for bodies with two fallback-looking quote
// blocks separated by a blank line: a second pass removes the next block.
func RemovePlainReplyFallback(body string) string {
	if !replyFallbackPattern.MatchString(body) || !strings.Contains(body, "\n") {
		return body
	}
	rest := body
	for strings.HasPrefix(rest, ">") {
		i := strings.IndexByte(rest, '\n')
		if i < 0 {
			return body
		}
		rest = rest[i+1:]
	}
	return strings.TrimLeft(rest, " \t\r\n")
}

// SanitizeMessageContent sanitizes the formatted body of c, and for text-like
// shapes also the plain-text reply fallback.
func SanitizeMessageContent(c MessageContent, removeReplyFallback bool) MessageContent {
	if c.FormattedBody != "" {
		c.FormattedBody = SanitizeHTML(c.FormattedBody, removeReplyFallback)
	}
	if removeReplyFallback {
		switch c.Shape() {
		case event.MsgText, event.MsgEmote, event.MsgNotice:
			c.Body = RemovePlainReplyFallback(c.Body)
		}
	}
	return c
}
