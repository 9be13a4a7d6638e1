package probe

import "math"

// xpsnrMaxVal is the peak sample value for 8-bit content
const xpsnrMaxVal = 255.0

// WeightedXPSNR combines the three channel XPSNR scores into a single
// luma-dominant value. Each channel is converted back to MSE, the MSEs
// are averaged with 4:1:1 weights, and the result is converted to dB:
//
//	wxpsnr = 10*log10(255^2 / ((4*mseY + mseU + mseV) / 6))
//
// This is a fixed contract: pure, deterministic, computed locally and
// never sourced from the measurement tool.
func WeightedXPSNR(y, u, v float64) float64 {
	mse := (4.0*psnrToMSE(y) + psnrToMSE(u) + psnrToMSE(v)) / 6.0
	return 10.0 * math.Log10(xpsnrMaxVal*xpsnrMaxVal/mse)
}

// psnrToMSE inverts the PSNR formula at 8-bit peak
func psnrToMSE(p float64) float64 {
	return xpsnrMaxVal * xpsnrMaxVal / math.Pow(10, p/10)
}
