package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-postfx/common"
)

// cpuKernel is a software filter implementation. src has already been scaled
// to dst's dimensions; uniforms is the same packed block the WGPU backend
// uploads to the GPU.
type cpuKernel func(dst, src *image.RGBA, uniforms []byte)

// cpuKernels maps kernel base names (derived from program keys) to their
// implementations. The math mirrors the WGSL fragment shaders so the two
// backends produce visually equivalent output.
var cpuKernels = map[string]cpuKernel{
	"passthrough": passthroughKernel,
	"grain":       grainKernel,
	"crt":         crtKernel,
	"aberration":  aberrationKernel,
}

// hash21 is the classic fract(sin(dot)) pseudo-random hash used by the noise
// shaders, mirrored here for the CPU path. Returns a value in [0, 1).
func hash21(x, y, seed float64) float64 {
	s := math.Sin(x*12.9898+y*78.233+seed*37.719) * 43758.5453
	return s - math.Floor(s)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// samplePixel reads the pixel at (x, y) with clamp-to-edge addressing.
func samplePixel(img *image.RGBA, x, y int) color.RGBA {
	b := img.Bounds()
	x = common.ClampInt(x, b.Min.X, b.Max.X-1)
	y = common.ClampInt(y, b.Min.Y, b.Max.Y-1)
	return img.RGBAAt(x, y)
}

func passthroughKernel(dst, src *image.RGBA, _ []byte) {
	if dst == src {
		return
	}
	copy(dst.Pix, src.Pix)
}

func grainKernel(dst, src *image.RGBA, uniforms []byte) {
	u := common.BytesToStruct[GrainUniforms](uniforms)
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	seed := 0.0
	if u.Animated != 0 {
		seed = float64(u.Time)
	}

	intensity := float64(u.Intensity)
	weights := [3]float64{float64(u.WeightR), float64(u.WeightG), float64(u.WeightB)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := src.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			n := hash21(float64(x), float64(y), seed)*2 - 1
			out := color.RGBA{
				R: clampByte(float64(px.R) + n*intensity*weights[0]*255),
				G: clampByte(float64(px.G) + n*intensity*weights[1]*255),
				B: clampByte(float64(px.B) + n*intensity*weights[2]*255),
				A: px.A,
			}
			dst.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, out)
		}
	}
}

func crtKernel(dst, src *image.RGBA, uniforms []byte) {
	u := common.BytesToStruct[CRTUniforms](uniforms)
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t := float64(u.Time)

	// Global flicker factor is uniform across the frame.
	flicker := 1.0
	if u.Flags&CRTFlagFlicker != 0 {
		flicker = 1 - float64(u.FlickerIntensity)*0.5*(1+math.Sin(2*math.Pi*float64(u.FlickerSpeed)*t))
	}

	for y := 0; y < h; y++ {
		scanline := 1.0
		if u.Flags&CRTFlagScanlines != 0 {
			s := math.Sin(float64(y) * math.Pi / float64(u.ScanlineSpacing))
			scanline = 1 - float64(u.ScanlineIntensity)*s*s
		}

		for x := 0; x < w; x++ {
			var px color.RGBA
			darken := 1.0

			if u.Flags&CRTFlagCurvature != 0 {
				// Barrel warp in centered UV space; outside the unit square
				// maps to black, matching the shader.
				cx := (float64(x)+0.5)/float64(w)*2 - 1
				cy := (float64(y)+0.5)/float64(h)*2 - 1
				r2 := cx*cx + cy*cy
				wx := cx * (1 + float64(u.CurvatureAmount)*5*r2)
				wy := cy * (1 + float64(u.CurvatureAmount)*5*r2)
				if wx < -1 || wx > 1 || wy < -1 || wy > 1 {
					dst.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{A: 255})
					continue
				}
				sx := int((wx + 1) / 2 * float64(w))
				sy := int((wy + 1) / 2 * float64(h))
				px = samplePixel(src, bounds.Min.X+sx, bounds.Min.Y+sy)
				darken = 1 - float64(u.CornerDarkening)*r2*r2
				if darken < 0 {
					darken = 0
				}
			} else {
				px = src.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			}

			r := float64(px.R)
			g := float64(px.G)
			b := float64(px.B)

			if u.Flags&CRTFlagGlow != 0 {
				lum := (0.2126*r + 0.7152*g + 0.0722*b) / 255
				if lum > float64(u.GlowThreshold) {
					boost := 1 + float64(u.GlowIntensity)*(lum-float64(u.GlowThreshold))
					r *= boost
					g *= boost
					b *= boost
				}
			}

			if u.Flags&CRTFlagNoise != 0 {
				n := hash21(float64(x), float64(y), t)*2 - 1
				r += n * float64(u.NoiseIntensity) * 255
				g += n * float64(u.NoiseIntensity) * 255
				b += n * float64(u.NoiseIntensity) * 255
			}

			factor := scanline * darken * flicker
			dst.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{
				R: clampByte(r * factor),
				G: clampByte(g * factor),
				B: clampByte(b * factor),
				A: px.A,
			})
		}
	}
}

func aberrationKernel(dst, src *image.RGBA, uniforms []byte) {
	u := common.BytesToStruct[AberrationUniforms](uniforms)
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	baseDX := float64(u.OffsetX) * float64(u.Intensity) * float64(w)
	baseDY := float64(u.OffsetY) * float64(u.Intensity) * float64(h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			scale := 1.0
			if u.Radial != 0 {
				cx := (float64(x)+0.5)/float64(w)*2 - 1
				cy := (float64(y)+0.5)/float64(h)*2 - 1
				scale = math.Sqrt(cx*cx + cy*cy)
			}
			dx := int(math.Round(baseDX * scale))
			dy := int(math.Round(baseDY * scale))

			g := src.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			rp := samplePixel(src, bounds.Min.X+x+dx, bounds.Min.Y+y+dy)
			bp := samplePixel(src, bounds.Min.X+x-dx, bounds.Min.Y+y-dy)

			dst.SetRGBA(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{
				R: rp.R,
				G: g.G,
				B: bp.B,
				A: g.A,
			})
		}
	}
}

// drawSpritesCPU rasterizes sprite instances into img, back-to-front by Z.
// World coordinates are transformed through the column-major view-projection
// matrix to NDC and mapped to pixels with a Y flip.
func drawSpritesCPU(img *image.RGBA, vp []float32, instances []SpriteInstance) {
	sorted := make([]SpriteInstance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Z < sorted[j].Z })

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	project := func(x, y, z float32) (float64, float64) {
		cx := float64(vp[0])*float64(x) + float64(vp[4])*float64(y) + float64(vp[8])*float64(z) + float64(vp[12])
		cy := float64(vp[1])*float64(x) + float64(vp[5])*float64(y) + float64(vp[9])*float64(z) + float64(vp[13])
		cw := float64(vp[3])*float64(x) + float64(vp[7])*float64(y) + float64(vp[11])*float64(z) + float64(vp[15])
		if cw != 0 {
			cx /= cw
			cy /= cw
		}
		return (cx + 1) / 2 * w, (1 - cy) / 2 * h
	}

	for _, inst := range sorted {
		x0, y0 := project(inst.X, inst.Y, inst.Z)
		x1, y1 := project(inst.X+inst.W, inst.Y+inst.H, inst.Z)
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		if y1 < y0 {
			y0, y1 = y1, y0
		}

		rect := image.Rect(
			b.Min.X+int(math.Floor(x0)),
			b.Min.Y+int(math.Floor(y0)),
			b.Min.X+int(math.Ceil(x1)),
			b.Min.Y+int(math.Ceil(y1)),
		).Intersect(b)
		if rect.Empty() {
			continue
		}

		fill := color.RGBA{
			R: uint8(common.Clamp32(inst.Color.R, 0, 1) * 255),
			G: uint8(common.Clamp32(inst.Color.G, 0, 1) * 255),
			B: uint8(common.Clamp32(inst.Color.B, 0, 1) * 255),
			A: uint8(common.Clamp32(inst.Color.A, 0, 1) * 255),
		}
		draw.Draw(img, rect, &image.Uniform{C: fill}, image.Point{}, draw.Over)
	}
}
