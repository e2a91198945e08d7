package video

import (
	"io"
	"sync"

	"github.com/ivlev/text2video/internal/system"
)

// Pipe реализует канал эмиссии кадров с обратным давлением. Кадры пишутся в
// приемник строго в порядке поступления одной горутиной-писателем;
// отправка в заполненную очередь блокирует продюсера, пока писатель не
// разгребет буфер. Кадр N+1 не попадает в приемник раньше кадра N.
type Pipe struct {
	w      io.Writer
	frames chan []byte
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// NewPipe оборачивает приемник очередью глубиной depth кадров.
func NewPipe(w io.Writer, depth int) *Pipe {
	if depth < 1 {
		depth = 1
	}
	p := &Pipe{
		w:      w,
		frames: make(chan []byte, depth),
		done:   make(chan struct{}),
	}
	go p.drain()
	return p
}

func (p *Pipe) drain() {
	defer close(p.done)
	for buf := range p.frames {
		if p.getErr() == nil {
			if _, err := p.w.Write(buf); err != nil {
				p.setErr(err)
			}
		}
		system.PutBytes(buf)
	}
}

// WriteFrame копирует кадр в пул-буфер и ставит в очередь. Блокируется,
// когда очередь полна (обратное давление), и возвращает ошибку записи,
// как только писатель её зафиксировал.
func (p *Pipe) WriteFrame(pix []byte) error {
	if err := p.getErr(); err != nil {
		return err
	}
	buf := system.GetBytes(len(pix))
	copy(buf, pix)
	p.frames <- buf
	return nil
}

// Close закрывает очередь, дожидается писателя и отдает первую ошибку.
func (p *Pipe) Close() error {
	close(p.frames)
	<-p.done
	return p.getErr()
}

func (p *Pipe) getErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipe) setErr(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
}
