package nets

import (
	"math"
	"math/rand"

	"github.com/charlesxu90/riser"
	"github.com/charlesxu90/riser/utils"
)

// LSTM is a single recurrent layer consuming (N, In, L) tensors - In
// features per timestep, L timesteps - and producing the hidden state at
// every timestep as (N, Hidden, L). Initial hidden and cell states are
// zero. Gate weights follow the i, f, g, o block order.
type LSTM struct {
	In, Hidden int

	wih *riser.Param // (4H, In)
	whh *riser.Param // (4H, H)
	bih *riser.Param // (4H)
	bhh *riser.Param // (4H)

	// caches from the last Forward, one slice per timestep
	x     *Tensor
	gates [][]float64 // post-activation gates, [n*4H + block*H + k]
	cells [][]float64 // c_t, [n*H + k]
	tanhC [][]float64
	hs    [][]float64 // h_t
}

// NewLSTM returns an LSTM with all weights drawn uniformly from
// (-1/sqrt(hidden), 1/sqrt(hidden)).
func NewLSTM(in, hidden int, rng *rand.Rand) *LSTM {
	l := &LSTM{
		In:     in,
		Hidden: hidden,
		wih:    riser.NewParam(4 * hidden * in),
		whh:    riser.NewParam(4 * hidden * hidden),
		bih:    riser.NewParam(4 * hidden),
		bhh:    riser.NewParam(4 * hidden),
	}

	bound := 1 / math.Sqrt(float64(hidden))
	for _, p := range l.Params() {
		uniformInit(p.Data, bound, rng)
	}

	return l
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (l *LSTM) Forward(x *Tensor) *Tensor {
	N, L, H, In := x.N, x.L, l.Hidden, l.In
	l.x = x
	l.gates = make([][]float64, L)
	l.cells = make([][]float64, L)
	l.tanhC = make([][]float64, L)
	l.hs = make([][]float64, L)

	y := NewTensor(N, H, L)
	hPrev := make([]float64, N*H)
	cPrev := make([]float64, N*H)

	for t := 0; t < L; t++ {
		gates := make([]float64, N*4*H)
		cell := make([]float64, N*H)
		tanhC := make([]float64, N*H)
		h := make([]float64, N*H)

		utils.MultiThread(0, N, func(n int) {
			z := make([]float64, 4*H)
			for j := 0; j < 4*H; j++ {
				sum := l.bih.Data[j] + l.bhh.Data[j]
				wi := l.wih.Data[j*In : (j+1)*In]
				for c := 0; c < In; c++ {
					sum += wi[c] * x.At(n, c, t)
				}
				wh := l.whh.Data[j*H : (j+1)*H]
				hp := hPrev[n*H : (n+1)*H]
				for k := 0; k < H; k++ {
					sum += wh[k] * hp[k]
				}
				z[j] = sum
			}

			for k := 0; k < H; k++ {
				i := sigmoid(z[k])
				f := sigmoid(z[H+k])
				g := math.Tanh(z[2*H+k])
				o := sigmoid(z[3*H+k])

				c := f*cPrev[n*H+k] + i*g
				tc := math.Tanh(c)

				gates[n*4*H+k] = i
				gates[n*4*H+H+k] = f
				gates[n*4*H+2*H+k] = g
				gates[n*4*H+3*H+k] = o
				cell[n*H+k] = c
				tanhC[n*H+k] = tc
				h[n*H+k] = o * tc
			}
		}, 1)

		l.gates[t] = gates
		l.cells[t] = cell
		l.tanhC[t] = tanhC
		l.hs[t] = h

		for n := 0; n < N; n++ {
			for k := 0; k < H; k++ {
				y.Set(n, k, t, h[n*H+k])
			}
		}

		hPrev, cPrev = h, cell
	}

	return y
}

func (l *LSTM) Backward(grad *Tensor) *Tensor {
	x := l.x
	N, L, H, In := x.N, x.L, l.Hidden, l.In

	dx := NewTensor(N, In, L)
	dh := make([]float64, N*H) // carried from t+1
	dc := make([]float64, N*H)
	dz := make([]float64, N*4*H)
	zeros := make([]float64, N*H)

	for t := L - 1; t >= 0; t-- {
		cPrev, hPrev := zeros, zeros
		if t > 0 {
			cPrev, hPrev = l.cells[t-1], l.hs[t-1]
		}
		gates := l.gates[t]

		utils.MultiThread(0, N, func(n int) {
			// preactivation gate gradients, then the carried dh and dc
			for k := 0; k < H; k++ {
				i := gates[n*4*H+k]
				f := gates[n*4*H+H+k]
				g := gates[n*4*H+2*H+k]
				o := gates[n*4*H+3*H+k]
				tc := l.tanhC[t][n*H+k]

				dhv := grad.At(n, k, t) + dh[n*H+k]
				dcv := dc[n*H+k] + dhv*o*(1-tc*tc)

				dz[n*4*H+k] = dcv * g * i * (1 - i)
				dz[n*4*H+H+k] = dcv * cPrev[n*H+k] * f * (1 - f)
				dz[n*4*H+2*H+k] = dcv * i * (1 - g*g)
				dz[n*4*H+3*H+k] = dhv * tc * o * (1 - o)

				dc[n*H+k] = dcv * f
			}

			for c := 0; c < In; c++ {
				var sum float64
				for j := 0; j < 4*H; j++ {
					sum += l.wih.Data[j*In+c] * dz[n*4*H+j]
				}
				dx.Set(n, c, t, sum)
			}

			for k := 0; k < H; k++ {
				var sum float64
				for j := 0; j < 4*H; j++ {
					sum += l.whh.Data[j*H+k] * dz[n*4*H+j]
				}
				dh[n*H+k] = sum
			}
		}, 1)

		// weight gradients, one claim per gate row
		utils.MultiThread(0, 4*H, func(j int) {
			for n := 0; n < N; n++ {
				z := dz[n*4*H+j]
				if z == 0 {
					continue
				}
				l.bih.Grad[j] += z
				l.bhh.Grad[j] += z
				for c := 0; c < In; c++ {
					l.wih.Grad[j*In+c] += z * x.At(n, c, t)
				}
				for k := 0; k < H; k++ {
					l.whh.Grad[j*H+k] += z * hPrev[n*H+k]
				}
			}
		}, 1)
	}

	return dx
}

func (l *LSTM) Params() []*riser.Param {
	return []*riser.Param{l.wih, l.whh, l.bih, l.bhh}
}
