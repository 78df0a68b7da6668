// SPDX-License-Identifier: MIT
package coeffs

// Parameters the default table was designed with. They must match the
// design tool run exactly; changing any of them requires a new table.
const (
	DefaultSampleRate = 16000
	DefaultBands      = 6
	DefaultStages     = 3
	DefaultPostShift  = 4
)

// defaultValues is the six-band octave table: third-order Butterworth
// bandpass filters (three sections each) around 100 Hz * 2^k, Q31 with a
// post shift of 4, fs = 16 kHz. Bands 1-3 are the design tool's output.
// Band 4 is the row the shipped table listed as its fifth band; it peaks at
// 800 Hz. The shipped fourth row peaks near 1.2 kHz and is not used. Bands 5
// and 6 were regenerated with the same design parameters, since the shipped
// table repeated its fifth row as the sixth.
var defaultValues = [DefaultBands][DefaultStages * ValuesPerStage]int32{
	// 70.7 Hz to 141.4 Hz
	{
		349, 699, 349, 264555182, -130541587,
		134217728, -67, -134219283, 265663083, -131823456,
		134217728, -268434645, 134216917, 267019266, -132913256,
	},
	// 141.4 Hz to 282.8 Hz
	{
		2721, 5441, 2721, 260375768, -126963381,
		134217728, -67, -134219283, 262193941, -129474301,
		134217728, -268434645, 134216917, 265393561, -131620459,
	},
	// 282.8 Hz to 565.7 Hz
	{
		20635, 41271, 20635, 251164150, -120080476,
		134217728, -67, -134219283, 253261157, -124917151,
		134217728, -268434645, 134216917, 261522959, -129065288,
	},
	// 565.7 Hz to 1131.4 Hz
	{
		149046, 298092, 149046, 229631975, -107282897,
		134217728, -67, -134219283, 228128773, -116401482,
		134217728, -268434645, 134216917, 251380082, -124047183,
	},
	// 1131.4 Hz to 2262.7 Hz
	{
		988093, 1976180, 988087, 176457518, -84757405,
		134217728, -67, -134219283, 154862258, -101974490,
		134217728, -268434645, 134216917, 222216381, -114157820,
	},
	// 2262.7 Hz to 4525.5 Hz
	{
		5760975, 11521918, 5760943, 47472643, -47645430,
		134217728, -67, -134219283, -34439088, -85267947,
		134217728, -268434645, 134216917, 136338823, -93133606,
	},
}

// defaultEdges are the geometric midpoints between consecutive octave
// centres 50, 100, ..., 6400 Hz.
var defaultEdges = [DefaultBands + 1]float64{
	70.71067811865474,
	141.4213562373095,
	282.8427124746191,
	565.6854249492382,
	1131.3708498984765,
	2262.7416997969535,
	4525.4833995939025,
}

var defaultNames = [DefaultBands]string{"sub", "bass", "low-mid", "mid", "high-mid", "presence"}

// Default returns a fresh copy of the built-in six-band table.
func Default() *Table {
	t := &Table{
		SampleRate: DefaultSampleRate,
		PostShift:  DefaultPostShift,
		Stages:     DefaultStages,
		Bands:      make([]BandCoefficients, DefaultBands),
	}
	for i := range t.Bands {
		values := defaultValues[i]
		t.Bands[i] = BandCoefficients{
			Name:   defaultNames[i],
			LowHz:  defaultEdges[i],
			HighHz: defaultEdges[i+1],
			Values: values[:],
		}
	}
	return t
}
