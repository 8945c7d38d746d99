package presenter

import (
	"fmt"
	"io"
	"strings"
)

// Presenter delivers formatted text and board images without coupling to the command layer.
type Presenter struct {
	out       io.Writer
	saveImage func(png []byte) (string, error)
}

// NewPresenter writes text to out. saveImage stores a PNG and returns where it went;
// nil skips images.
func NewPresenter(out io.Writer, saveImage func(png []byte) (string, error)) *Presenter {
	return &Presenter{out: out, saveImage: saveImage}
}

func (p *Presenter) Text(message string) error {
	if p == nil || p.out == nil {
		return nil
	}
	if text := strings.TrimSpace(message); text != "" {
		_, err := fmt.Fprintln(p.out, text)
		return err
	}
	return nil
}

func (p *Presenter) Board(message string, png []byte) error {
	if err := p.Text(message); err != nil {
		return err
	}
	if p == nil || len(png) == 0 || p.saveImage == nil {
		return nil
	}
	where, err := p.saveImage(png)
	if err != nil {
		return err
	}
	return p.Text("board image: " + where)
}
