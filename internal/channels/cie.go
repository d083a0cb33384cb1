package channels

// cie maps a perceptual level 0..254 to a PWM duty 0..254 following the CIE 1931 lightness curve.
var cie = [255]uint8{
	0, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 3, 3, 3, 3, 3,
	3, 3, 4, 4, 4, 4, 4, 4, 4, 5,
	5, 5, 5, 5, 6, 6, 6, 6, 6, 7,
	7, 7, 7, 8, 8, 8, 8, 9, 9, 9,
	9, 10, 10, 10, 11, 11, 11, 11, 12, 12,
	12, 13, 13, 13, 14, 14, 15, 15, 15, 16,
	16, 17, 17, 17, 18, 18, 19, 19, 20, 20,
	21, 21, 21, 22, 22, 23, 23, 24, 25, 25,
	26, 26, 27, 27, 28, 28, 29, 30, 30, 31,
	31, 32, 33, 33, 34, 35, 35, 36, 37, 37,
	38, 39, 40, 40, 41, 42, 43, 43, 44, 45,
	46, 47, 47, 48, 49, 50, 51, 52, 52, 53,
	54, 55, 56, 57, 58, 59, 60, 61, 62, 63,
	64, 65, 66, 67, 68, 69, 70, 71, 72, 73,
	74, 75, 77, 78, 79, 80, 81, 82, 84, 85,
	86, 87, 88, 90, 91, 92, 94, 95, 96, 97,
	99, 100, 102, 103, 104, 106, 107, 109, 110, 111,
	113, 114, 116, 117, 119, 120, 122, 123, 125, 127,
	128, 130, 131, 133, 135, 136, 138, 140, 141, 143,
	145, 147, 148, 150, 152, 154, 155, 157, 159, 161,
	163, 165, 167, 169, 170, 172, 174, 176, 178, 180,
	182, 184, 186, 188, 191, 193, 195, 197, 199, 201,
	203, 205, 208, 210, 212, 214, 217, 219, 221, 223,
	226, 228, 231, 233, 235, 254,
}

// Duty returns the corrected PWM duty for a perceptual level. Levels above 254 saturate.
func Duty(level uint8) uint8 {
	if int(level) >= len(cie) {
		return cie[len(cie)-1]
	}
	return cie[level]
}
