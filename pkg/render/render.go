// Package render prints workspace state as human-readable text.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jinzhu/inflection"
	"github.com/spf13/cast"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Dimash999666/data-quality-platform/pkg/api"
	"github.com/Dimash999666/data-quality-platform/pkg/workspace"
)

// Options controls rendering.
type Options struct {
	Color bool
}

// Renderer writes text views to an io.Writer. The first write error is kept
// and returned by every later call.
type Renderer struct {
	out     io.Writer
	color   bool
	printer *message.Printer
	err     error
}

// New creates a Renderer writing to out.
func New(out io.Writer, opts Options) *Renderer {
	return &Renderer{
		out:     out,
		color:   opts.Color,
		printer: message.NewPrinter(language.English),
	}
}

func (r *Renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) println(args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintln(r.out, args...)
}

// table runs fill against a tabwriter over the output.
func (r *Renderer) table(fill func(w io.Writer)) {
	if r.err != nil {
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fill(tw)
	r.err = tw.Flush()
}

// num formats an integer with thousands separators.
func (r *Renderer) num(n int) string {
	return r.printer.Sprintf("%d", n)
}

// pct formats a percentage with one decimal.
func (r *Renderer) pct(f float64) string {
	return r.printer.Sprintf("%.1f%%", f)
}

// count renders "1 rule" or "3 rules".
func (r *Renderer) count(n int, noun string) string {
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return r.num(n) + " " + noun
}

// Err returns the first write error.
func (r *Renderer) Err() error {
	return r.err
}

// Message prints a single line.
func (r *Renderer) Message(format string, args ...any) error {
	r.printf(format+"\n", args...)
	return r.err
}

// Error prints err. A plain error is one line; a structured diagnostic
// prints every present field on its own labelled line.
func (r *Renderer) Error(err error) error {
	if err == nil {
		return r.err
	}

	message, detail := describe(err)
	r.printf("%s %s\n", r.paint(ansiRed, "Error:"), message)
	if detail == nil {
		return r.err
	}

	if detail.Error != "" && detail.Error != message {
		r.printf("  %s %s\n", r.bold("Error:"), detail.Error)
	}
	if detail.Reason != "" {
		r.printf("  %s %s\n", r.bold("Reason:"), detail.Reason)
	}
	if detail.Explanation != "" {
		r.printf("  %s %s\n", r.bold("Explanation:"), detail.Explanation)
	}
	if len(detail.FoundIssues) > 0 {
		r.printf("  %s\n", r.bold("Found issues:"))
		for _, issue := range detail.FoundIssues {
			r.printf("    - %s\n", issue)
		}
	}
	if detail.HowToFix != "" {
		r.printf("  %s %s\n", r.bold("How to fix:"), detail.HowToFix)
	}
	return r.err
}

// describe picks the one-line message and optional diagnostic of err.
func describe(err error) (string, *api.Detail) {
	var uploadErr *workspace.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Error(), uploadErr.Detail
	}
	if apiErr, ok := api.AsError(err); ok {
		// Keep any wrapping context but show the service's own message.
		return strings.Replace(err.Error(), apiErr.Error(), apiErr.Message, 1), apiErr.Detail
	}
	return err.Error(), nil
}

// formatParams renders rule parameters as "k=v" pairs in key order.
func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+cast.ToString(params[k]))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
