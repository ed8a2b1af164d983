package guildconfig

import (
	"strconv"
	"strings"
)

// TemplateVars carries the values substituted into a level-up announcement.
type TemplateVars struct {
	UserMention string
	Level       int
	XP          int
	ServerName  string
}

// RenderTemplate substitutes the {user}, {level}, {xp} and {server}
// placeholders in a level-up message template. Unknown placeholders are
// left untouched so a typo is visible instead of silently swallowed.
func RenderTemplate(tmpl string, vars TemplateVars) string {
	r := strings.NewReplacer(
		"{user}", vars.UserMention,
		"{level}", strconv.Itoa(vars.Level),
		"{xp}", strconv.Itoa(vars.XP),
		"{server}", vars.ServerName,
	)
	return r.Replace(tmpl)
}
