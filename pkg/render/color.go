package render

import "strings"

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
)

// ColorFor returns the ANSI color used for a severity, rule status or drift
// level. Unknown levels get no color.
func ColorFor(level string) string {
	switch strings.ToLower(level) {
	case "high", "failed", "error", "critical", "degraded":
		return ansiRed
	case "medium", "skipped", "warning":
		return ansiYellow
	case "low":
		return ansiBlue
	case "passed", "ok", "good", "improved":
		return ansiGreen
	default:
		return ""
	}
}

func (r *Renderer) paint(code, text string) string {
	if !r.color || code == "" {
		return text
	}
	return code + text + ansiReset
}

// level paints text with the color of its own level.
func (r *Renderer) level(text string) string {
	return r.paint(ColorFor(text), text)
}

func (r *Renderer) bold(text string) string {
	return r.paint(ansiBold, text)
}

func (r *Renderer) dim(text string) string {
	return r.paint(ansiDim, text)
}
