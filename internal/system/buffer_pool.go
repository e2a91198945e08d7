package system

import (
	"image"
	"sync"
)

// Пулы переиспользуют кадровые буферы, чтобы не гонять GC на каждом кадре:
// изображения ключуются по размеру прямоугольника, байтовые буферы по длине.

type imagePool struct {
	mu    sync.RWMutex
	pools map[string]*sync.Pool
}

var images = &imagePool{pools: make(map[string]*sync.Pool)}

// GetImage возвращает чистый *image.RGBA нужного размера из пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	img := images.get(rect).Get().(*image.RGBA)
	// Буфер мог вернуться из другого рендера, обнуляем.
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

// PutImage отдает буфер обратно в пул.
func PutImage(img *image.RGBA) {
	if img == nil {
		return
	}
	images.get(img.Rect).Put(img)
}

func (p *imagePool) get(rect image.Rectangle) *sync.Pool {
	key := rect.String()
	p.mu.RLock()
	pool, ok := p.pools[key]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok = p.pools[key]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() interface{} {
			return image.NewRGBA(rect)
		},
	}
	p.pools[key] = pool
	return pool
}

type bytePool struct {
	mu    sync.RWMutex
	pools map[int]*sync.Pool
}

var buffers = &bytePool{pools: make(map[int]*sync.Pool)}

// GetBytes возвращает срез ровно нужной длины. Содержимое не определено,
// вызывающий перезаписывает его целиком.
func GetBytes(n int) []byte {
	buffers.mu.RLock()
	pool, ok := buffers.pools[n]
	buffers.mu.RUnlock()
	if !ok {
		buffers.mu.Lock()
		if pool, ok = buffers.pools[n]; !ok {
			pool = &sync.Pool{
				New: func() interface{} {
					return make([]byte, n)
				},
			}
			buffers.pools[n] = pool
		}
		buffers.mu.Unlock()
	}
	return pool.Get().([]byte)
}

// PutBytes возвращает буфер в пул своей длины.
func PutBytes(b []byte) {
	if b == nil {
		return
	}
	buffers.mu.RLock()
	pool, ok := buffers.pools[len(b)]
	buffers.mu.RUnlock()
	if ok {
		pool.Put(b)
	}
}
