// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
)

const (
	cyan       = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	cyanBright = "\033[38;2;97;228;240m"  // Brighter Cyan: #61E4F0
	dimCyan    = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey       = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey    = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success    = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	white      = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	purple     = "\033[38;2;198;120;221m" // One Dark Purple: #C678DD
	dimPurple  = "\033[38;2;142;87;158m"  // Dim Purple: #8E579E
	reset      = "\033[0m"
	bold       = "\033[1m"
)

type Reporter struct {
	out io.Writer
}

// NewReporter writes to out, or stdout when out is nil.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

func (r *Reporter) LogStage(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, grey, formattedMsg, reset)
}

func (r *Reporter) LogSuccess(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, white, formattedMsg, reset)
}

func (r *Reporter) LogInfo(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(r.out, "%s▶ %s%s%s\n", dimGrey, grey, formattedMsg, reset)
}

// SessionReport renders the popup session store in two lines.
func (r *Reporter) SessionReport(stats stores.SessionStats, now time.Time) string {
	var report strings.Builder
	timestamp := now.UTC().Format("2006-01-02 15:04:05 MST")

	report.WriteString(fmt.Sprintf("%s%s▓ %s | %sPopup sessions%s\n", bold, dimCyan, timestamp, cyanBright, reset))

	var activity strings.Builder
	activity.WriteString(fmt.Sprintf("%s✦ activity:%s", purple, reset))
	if stats.Active > 0 {
		activity.WriteString(fmt.Sprintf(" %ssessions:%s%d", dimPurple, white, stats.Active))
		activity.WriteString(fmt.Sprintf(" %soldest:%s%s", dimPurple, cyan, now.Sub(stats.Oldest).Round(time.Second)))
	} else {
		activity.WriteString(fmt.Sprintf(" %ssessions:%s--", dimGrey, dimGrey))
	}
	report.WriteString(activity.String() + reset + "\n")

	return report.String()
}

func (r *Reporter) Print(s string) {
	fmt.Fprint(r.out, s)
}
