package term

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jgivc/rinupdate/internal/entity"
	"github.com/jgivc/rinupdate/internal/service/detect"
	"github.com/jgivc/rinupdate/internal/util"
)

const (
	DefaultWidth = 80

	corner = "+"
	floor  = "─"
	wall   = "|"
)

// Handler is the plain text user interface. It reads answers line by line from
// in and writes everything else to out.
type Handler struct {
	in    *bufio.Reader
	out   io.Writer
	width int
}

func NewHandler(in io.Reader, out io.Writer, width int) *Handler {
	if width < 8 {
		width = DefaultWidth
	}

	return &Handler{
		in:    bufio.NewReader(in),
		out:   out,
		width: width,
	}
}

// Ask prints question and returns the answer without surrounding spaces.
// io.EOF is returned only when nothing was typed before the input ended.
func (h *Handler) Ask(question string) (string, error) {
	fmt.Fprint(h.out, question)

	line, err := h.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (h *Handler) Notify(msg string) {
	fmt.Fprintln(h.out, msg)
}

// Confirm repeats question until the answer is y or n.
func (h *Handler) Confirm(question string) (bool, error) {
	for {
		answer, err := h.Ask(question + " (y/n) ")
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintf(h.out, "Invalid response: '%s', try again.\n", answer)
		}
	}
}

func (h *Handler) Usage(program, setupQuery string) {
	fmt.Fprintf(h.out, "Usage:\n%s [flags] {query}\n", program)
	fmt.Fprintln(h.out, "Query is the keyword that you want to search with, SteamAppID is recommended.")
	fmt.Fprintf(h.out, "Use %q as the query to create an app config for an installed game.\n", setupQuery)
}

// ShowInfo prints the thread header and the side by side link table.
func (h *Handler) ShowInfo(res *entity.SearchResult) {
	fmt.Fprintln(h.out)
	h.center(res.ThreadInfo.Text)
	if res.Author != "" {
		h.center("by " + res.Author)
	}
	if res.ImageURL != "" {
		h.center(res.ImageURL)
	}
	fmt.Fprintln(h.out)

	rows := max(len(res.SteamLinks), len(res.DLLinks))
	left := make([]string, rows)
	right := make([]string, rows)

	for i, s := range res.SteamLinks {
		left[i] = s.Title + " | " + util.EpochToDate(s.LastUpdate)
	}
	for i, d := range res.DLLinks {
		right[i] = d.Text
	}

	h.table("Steam Links", "Download Links", left, right)
}

func (h *Handler) ShowUpdate(u *entity.Update) {
	h.table("Installed", "Available",
		[]string{detect.FormatVersion(u.From)},
		[]string{detect.FormatVersion(u.To)})
	fmt.Fprintf(h.out, "Download link: %s\n", u.Link.Link)
}

func (h *Handler) table(head1, head2 string, left, right []string) {
	col := h.width/2 - 1
	pause := corner + strings.Repeat(floor, col) + corner + strings.Repeat(floor, col) + corner

	fmt.Fprintln(h.out, pause)
	fmt.Fprintln(h.out, line(head1, head2, col))
	fmt.Fprintln(h.out, pause)
	for i := range left {
		fmt.Fprintln(h.out, line(left[i], right[i], col))
	}
	fmt.Fprintln(h.out, pause)
}

func (h *Handler) center(text string) {
	fmt.Fprintln(h.out, pad(text, h.width))
}

// line renders |s1|s2| with both cells centred in width columns.
func line(s1, s2 string, width int) string {
	return wall + pad(s1, width) + wall + pad(s2, width) + wall
}

// pad centres s in width columns, cutting it when it does not fit. The extra
// column of an odd remainder goes to the right.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		r := []rune(s)
		s = string(r[:width])
		n = width
	}

	left := (width - n) / 2

	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
