package objectstore

import (
	"io"
	"sync"

	"github.com/SHIV-31-60/Sf2-modded-store/internal/backend"
)

// progressReader считает прочитанные байты и сообщает о них onProgress.
// Клиент S3 может перемотать тело при повторе запроса: счётчик
// сбрасывается, но onProgress получает только возрастающие значения.
type progressReader struct {
	r          io.ReadSeeker
	total      int64
	onProgress backend.ProgressFunc

	mu       sync.Mutex
	read     int64
	reported int64
}

func newProgressReader(r io.ReadSeeker, total int64, onProgress backend.ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, onProgress: onProgress, reported: -1}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		sent := p.read
		p.mu.Unlock()
		p.report(sent)
	}
	return n, err
}

// Seek нужен клиенту S3 для повторной отправки тела.
func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	p.mu.Lock()
	p.read = pos
	p.mu.Unlock()
	return pos, nil
}

// complete сообщает о полной передаче (для пустых объектов Read не вызывается).
func (p *progressReader) complete() {
	p.report(p.total)
}

func (p *progressReader) report(sent int64) {
	if p.onProgress == nil {
		return
	}
	p.mu.Lock()
	if sent <= p.reported {
		p.mu.Unlock()
		return
	}
	p.reported = sent
	p.mu.Unlock()
	p.onProgress(sent, p.total)
}
