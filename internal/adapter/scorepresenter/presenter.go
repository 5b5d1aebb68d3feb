package scorepresenter

import (
	"fmt"
	"io"
	"strings"
)

// Presenter delivers formatted text without coupling the command layer to the output.
type Presenter struct {
	send func(message string) error
}

func NewPresenter(send func(message string) error) *Presenter {
	return &Presenter{send: send}
}

// WriterPresenter sends each message as one or more lines to w.
func WriterPresenter(w io.Writer) *Presenter {
	return NewPresenter(func(message string) error {
		_, err := fmt.Fprintln(w, message)
		return err
	})
}

func (p *Presenter) Show(message string) error {
	if p == nil || p.send == nil {
		return nil
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return p.send(message)
}
