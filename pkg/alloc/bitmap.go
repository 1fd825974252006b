package alloc

const bitsPerByte = 8

// Bitmap is a one-bit-per-unit occupancy vector. Bit `i` lives in byte
// `i/8` at position `i%8`, least significant bit first. Bits at or past Len
// are never handed out.
type Bitmap struct {
	bytes []byte
	len   uint32
}

func New(bits uint32) Bitmap {
	return Bitmap{make([]byte, (bits+bitsPerByte-1)/bitsPerByte), bits}
}

// FromBytes wraps an existing bitmap image. `bytes` may be longer than `bits`
// requires (bitmaps are stored in whole sectors).
func FromBytes(bytes []byte, bits uint32) Bitmap {
	return Bitmap{bytes, bits}
}

func (bm Bitmap) Len() uint32 { return bm.len }

func (bm Bitmap) Bytes() []byte { return bm.bytes }

// Scan returns the first clear bit without claiming it.
func (bm Bitmap) Scan() (uint32, bool) {
	for i, byt := range bm.bytes {
		if byt == 0xff {
			continue
		}
		for bit := uint32(0); bit < bitsPerByte; bit++ {
			if byt&(1<<bit) == 0 {
				if idx := uint32(i)*bitsPerByte + bit; idx < bm.len {
					return idx, true
				}
				return 0, false
			}
		}
	}
	return 0, false
}

func (bm Bitmap) Alloc() (uint32, bool) {
	idx, ok := bm.Scan()
	if ok {
		bm.Set(idx)
	}
	return idx, ok
}

func (bm Bitmap) Test(idx uint32) bool {
	return bm.bytes[idx/bitsPerByte]&(1<<(idx%bitsPerByte)) != 0
}

func (bm Bitmap) Set(idx uint32) {
	bm.bytes[idx/bitsPerByte] |= 1 << (idx % bitsPerByte)
}

func (bm Bitmap) Clear(idx uint32) {
	bm.bytes[idx/bitsPerByte] &^= 1 << (idx % bitsPerByte)
}

// Count returns the number of set bits below Len.
func (bm Bitmap) Count() uint32 {
	var n uint32
	for i := uint32(0); i < bm.len; i++ {
		if bm.Test(i) {
			n++
		}
	}
	return n
}
