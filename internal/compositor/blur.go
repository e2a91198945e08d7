package compositor

import "image"

// boxBlur размывает img на месте сепарабельным box-фильтром. Каналы
// премультиплицированы, поэтому обычное усреднение корректно по альфе.
// tmp должен совпадать по размеру с img.
func boxBlur(img, tmp *image.RGBA, radius int) {
	if radius <= 0 {
		return
	}
	blurPass(tmp, img, radius, true)
	blurPass(img, tmp, radius, false)
}

func blurPass(dst, src *image.RGBA, radius int, horizontal bool) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	window := uint32(2*radius + 1)

	outer, inner := h, w
	if !horizontal {
		outer, inner = w, h
	}

	for o := 0; o < outer; o++ {
		var sumR, sumG, sumB, sumA uint32

		at := func(i int) int {
			if i < 0 {
				i = 0
			}
			if i >= inner {
				i = inner - 1
			}
			if horizontal {
				return src.PixOffset(b.Min.X+i, b.Min.Y+o)
			}
			return src.PixOffset(b.Min.X+o, b.Min.Y+i)
		}

		// Начальное окно с зажимом на краях.
		for i := -radius; i <= radius; i++ {
			si := at(i)
			sumR += uint32(src.Pix[si])
			sumG += uint32(src.Pix[si+1])
			sumB += uint32(src.Pix[si+2])
			sumA += uint32(src.Pix[si+3])
		}

		for i := 0; i < inner; i++ {
			var di int
			if horizontal {
				di = dst.PixOffset(b.Min.X+i, b.Min.Y+o)
			} else {
				di = dst.PixOffset(b.Min.X+o, b.Min.Y+i)
			}
			dst.Pix[di] = uint8(sumR / window)
			dst.Pix[di+1] = uint8(sumG / window)
			dst.Pix[di+2] = uint8(sumB / window)
			dst.Pix[di+3] = uint8(sumA / window)

			// Скользящее окно: убираем хвост, добавляем фронт.
			tail := at(i - radius)
			head := at(i + radius + 1)
			sumR += uint32(src.Pix[head]) - uint32(src.Pix[tail])
			sumG += uint32(src.Pix[head+1]) - uint32(src.Pix[tail+1])
			sumB += uint32(src.Pix[head+2]) - uint32(src.Pix[tail+2])
			sumA += uint32(src.Pix[head+3]) - uint32(src.Pix[tail+3])
		}
	}
}
