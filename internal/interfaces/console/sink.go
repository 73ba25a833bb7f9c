package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"bookpulse/internal/application/port"
)

type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink 输出到 w，nil 时使用 stdout
func NewSink(w io.Writer) port.Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{w: w}
}

func (s *Sink) WriteLive(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.w, line) // no newline
	return err
}

// 打印快照行后留一个空行占位，下一次变化时再重画 live 行
func (s *Sink) WriteSnapshot(ts time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "\n%s %s\n\n", ts.Format("2006-01-02 15:04:05"), line)
	return err
}

func (s *Sink) NewLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.w, "\n")
	return err
}
