// Package dwt implements a multi-level 2-D Haar (Daubechies-1) discrete
// wavelet transform over gonum matrices.
//
// Filters are orthonormal: lo = (a+b)/√2, hi = (a−b)/√2, applied
// separably to rows then columns. An odd extent is handled by replicating
// the final sample (symmetric edge extension), so a length-n signal yields
// ceil(n/2) coefficients per half-band. Each level records the extents of
// the plane it transformed, which makes the inverse exact for odd sizes as
// well.
package dwt

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrTooSmall is returned when the plane cannot support the requested
// number of decomposition levels.
var ErrTooSmall = errors.New("dwt: plane too small for requested levels")

const sqrt1_2 = 0.7071067811865476 // 1/√2

// Level holds the three detail subbands of one decomposition level plus
// the extents of the plane that produced them.
type Level struct {
	H, V, D    *mat.Dense // horizontal, vertical, diagonal detail
	SrcH, SrcW int
}

// Pyramid is a full decomposition: the approximation band of the deepest
// level followed by detail levels ordered coarsest first, so
// Levels[0] belongs to decomposition level L and Levels[len-1] to level 1.
type Pyramid struct {
	Approx *mat.Dense
	Levels []Level
}

// Forward computes a levels-deep decomposition of plane. The plane is not
// modified. Returns ErrTooSmall when any level would see an extent below 2.
func Forward(plane *mat.Dense, levels int) (*Pyramid, error) {
	if levels < 1 {
		return nil, errors.New("dwt: levels must be at least 1")
	}
	cur := mat.DenseCopyOf(plane)
	details := make([]Level, 0, levels)
	for l := 0; l < levels; l++ {
		h, w := cur.Dims()
		if h < 2 || w < 2 {
			return nil, ErrTooSmall
		}
		a, hh, vv, dd := forwardSingle(cur)
		// prepend: deeper levels go first
		details = append([]Level{{H: hh, V: vv, D: dd, SrcH: h, SrcW: w}}, details...)
		cur = a
	}
	return &Pyramid{Approx: cur, Levels: details}, nil
}

// Inverse reconstructs the plane from the pyramid. The result has the
// extents of the level-1 source plane.
func Inverse(p *Pyramid) *mat.Dense {
	cur := p.Approx
	for _, lv := range p.Levels {
		cur = inverseSingle(cur, lv.H, lv.V, lv.D, lv.SrcH, lv.SrcW)
	}
	return cur
}

// FitTo restores a plane to exactly (h, w): larger planes are cropped to
// the top-left submatrix, smaller ones are padded on the bottom/right by
// replicating the last valid row/column.
func FitTo(m *mat.Dense, h, w int) *mat.Dense {
	mh, mw := m.Dims()
	if mh == h && mw == w {
		return m
	}
	out := mat.NewDense(h, w, nil)
	for r := 0; r < h; r++ {
		sr := r
		if sr >= mh {
			sr = mh - 1
		}
		for c := 0; c < w; c++ {
			sc := c
			if sc >= mw {
				sc = mw - 1
			}
			out.Set(r, c, m.At(sr, sc))
		}
	}
	return out
}

// forward1D transforms one signal of length n into lo‖hi halves of
// ceil(n/2) coefficients each.
func forward1D(src []float64, lo, hi []float64) {
	n := len(src)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		a := src[2*i]
		b := a
		if 2*i+1 < n {
			b = src[2*i+1]
		}
		lo[i] = (a + b) * sqrt1_2
		hi[i] = (a - b) * sqrt1_2
	}
}

// inverse1D reconstructs n samples from lo and hi halves.
func inverse1D(lo, hi []float64, dst []float64) {
	n := len(dst)
	for i := 0; i < len(lo); i++ {
		a := (lo[i] + hi[i]) * sqrt1_2
		b := (lo[i] - hi[i]) * sqrt1_2
		dst[2*i] = a
		if 2*i+1 < n {
			dst[2*i+1] = b
		}
	}
}

// forwardSingle applies one 2-D level: rows first, then columns of the
// intermediate, and splits the result into approximation and detail bands.
func forwardSingle(src *mat.Dense) (approx, h, v, d *mat.Dense) {
	rows, cols := src.Dims()
	halfW := (cols + 1) / 2
	halfH := (rows + 1) / 2

	// Row pass: each row becomes lo‖hi of width 2*halfW.
	rowLo := mat.NewDense(rows, halfW, nil)
	rowHi := mat.NewDense(rows, halfW, nil)
	lo := make([]float64, halfW)
	hi := make([]float64, halfW)
	for r := 0; r < rows; r++ {
		forward1D(src.RawRowView(r), lo, hi)
		rowLo.SetRow(r, lo)
		rowHi.SetRow(r, hi)
	}

	// Column pass over both halves.
	approx = mat.NewDense(halfH, halfW, nil)
	h = mat.NewDense(halfH, halfW, nil)
	v = mat.NewDense(halfH, halfW, nil)
	d = mat.NewDense(halfH, halfW, nil)

	col := make([]float64, rows)
	cLo := make([]float64, halfH)
	cHi := make([]float64, halfH)
	for c := 0; c < halfW; c++ {
		// Low-pass (approximation/vertical-detail source) half.
		for r := 0; r < rows; r++ {
			col[r] = rowLo.At(r, c)
		}
		forward1D(col, cLo, cHi)
		for r := 0; r < halfH; r++ {
			approx.Set(r, c, cLo[r])
			v.Set(r, c, cHi[r])
		}
		// High-pass half.
		for r := 0; r < rows; r++ {
			col[r] = rowHi.At(r, c)
		}
		forward1D(col, cLo, cHi)
		for r := 0; r < halfH; r++ {
			h.Set(r, c, cLo[r])
			d.Set(r, c, cHi[r])
		}
	}
	return approx, h, v, d
}

// inverseSingle reconstructs a (srcH, srcW) plane from one level's bands.
// The approximation band may carry the extents of a deeper reconstruction;
// it always matches (ceil(srcH/2), ceil(srcW/2)) by construction.
func inverseSingle(approx, h, v, d *mat.Dense, srcH, srcW int) *mat.Dense {
	halfH, halfW := approx.Dims()

	// Undo the column pass.
	rowLo := mat.NewDense(srcH, halfW, nil)
	rowHi := mat.NewDense(srcH, halfW, nil)
	cLo := make([]float64, halfH)
	cHi := make([]float64, halfH)
	col := make([]float64, srcH)
	for c := 0; c < halfW; c++ {
		for r := 0; r < halfH; r++ {
			cLo[r] = approx.At(r, c)
			cHi[r] = v.At(r, c)
		}
		inverse1D(cLo, cHi, col)
		for r := 0; r < srcH; r++ {
			rowLo.Set(r, c, col[r])
		}
		for r := 0; r < halfH; r++ {
			cLo[r] = h.At(r, c)
			cHi[r] = d.At(r, c)
		}
		inverse1D(cLo, cHi, col)
		for r := 0; r < srcH; r++ {
			rowHi.Set(r, c, col[r])
		}
	}

	// Undo the row pass.
	out := mat.NewDense(srcH, srcW, nil)
	row := make([]float64, srcW)
	lo := make([]float64, halfW)
	hi := make([]float64, halfW)
	for r := 0; r < srcH; r++ {
		for c := 0; c < halfW; c++ {
			lo[c] = rowLo.At(r, c)
			hi[c] = rowHi.At(r, c)
		}
		inverse1D(lo, hi, row)
		out.SetRow(r, row)
	}
	return out
}
