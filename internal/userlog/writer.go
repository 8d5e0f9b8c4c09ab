package userlog

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/vovakirdan/loungecore/internal/core"
)

// Writer appends human readable lines to one text file per account,
// network and target: <dir>/<account>/<host>/<target>.log.
type Writer struct {
	fs  afero.Fs
	dir string

	mu  sync.Mutex
	log *zerolog.Logger
}

// New creates the log root on fs.
func New(fs afero.Fs, dir string, logger *zerolog.Logger) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("user log: dir is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("user log: create %s: %w", dir, err)
	}
	return &Writer{fs: fs, dir: dir, log: logger}, nil
}

// Write appends msg to the target's log.
func (w *Writer) Write(account, networkHost, target string, msg *core.Message) error {
	if account == "" || networkHost == "" || target == "" {
		return errors.New("user log: account, host and target are required")
	}
	dir := path.Join(w.dir, cleanName(account), cleanName(networkHost))
	file := path.Join(dir, cleanName(strings.ToLower(target))+".log")
	line := FormatLine(msg)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("user log: create %s: %w", dir, err)
	}
	f, err := w.fs.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("user log: open %s: %w", file, err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("user log: write %s: %w", file, err)
	}
	return f.Close()
}

// FormatLine renders msg as one log line including the trailing newline.
func FormatLine(msg *core.Message) string {
	ts := msg.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var body string
	switch msg.Type {
	case core.MessageTypeMessage:
		body = fmt.Sprintf("<%s> %s", msg.From, msg.Text)
	case core.MessageTypeAction:
		body = fmt.Sprintf("* %s %s", msg.From, msg.Text)
	case core.MessageTypeNotice:
		body = fmt.Sprintf("-%s- %s", msg.From, msg.Text)
	case core.MessageTypeJoin:
		body = fmt.Sprintf("*** %s joined", msg.From)
	case core.MessageTypePart:
		body = withReason(fmt.Sprintf("*** %s left", msg.From), msg.Text)
	case core.MessageTypeQuit:
		body = withReason(fmt.Sprintf("*** %s quit", msg.From), msg.Text)
	case core.MessageTypeNick:
		body = fmt.Sprintf("*** %s is now known as %s", msg.From, msg.Text)
	case core.MessageTypeTopic:
		body = fmt.Sprintf("*** %s changed topic to '%s'", msg.From, msg.Text)
	case core.MessageTypeMode:
		body = fmt.Sprintf("*** %s set mode %s", msg.From, msg.Text)
	case core.MessageTypeKick:
		body = fmt.Sprintf("*** %s %s", msg.From, msg.Text)
	default:
		body = fmt.Sprintf("*** %s %s", msg.Type, msg.Text)
	}

	return fmt.Sprintf("[%s] %s\n", ts.UTC().Format(time.RFC3339Nano), strings.TrimRight(body, " "))
}

func withReason(line, reason string) string {
	if reason == "" {
		return line
	}
	return line + " (" + reason + ")"
}

// cleanName turns a nick, host or channel into a safe path element.
func cleanName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return strings.Repeat("_", len(name))
	}
	return name
}
