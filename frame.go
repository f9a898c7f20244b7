package am2301

const (
	// FrameBits is the number of bits in one sensor response.
	FrameBits = 40

	fieldBits = 8
	numFields = FrameBits / fieldBits
)

// Frame is the raw 40-bit response from a single sensor read, one byte
// per bit (0 or 1) in wire order. It splits into five 8-bit fields:
// humidity high, humidity low, temperature high, temperature low and
// checksum.
type Frame [FrameBits]byte

// RelHumidity is relative humidity in percent.
type RelHumidity float64

// TemperatureC is a temperature in degrees Celsius.
type TemperatureC float64

func (r RelHumidity) Float64() float64 {
	return float64(r)
}

func (t TemperatureC) Float64() float64 {
	return float64(t)
}

// Measurement is one decoded sensor reading. The sensor reports both
// values in 0.1 unit resolution.
type Measurement struct {
	Humidity    RelHumidity
	Temperature TemperatureC
}

// field assembles field n (0..4) of the frame into a byte, MSB first.
// A bit value other than 0 or 1 makes the frame structurally invalid.
func (f Frame) field(n int) (uint8, error) {
	var v uint8
	for _, bit := range f[n*fieldBits : (n+1)*fieldBits] {
		if bit > 1 {
			return 0, ErrInvalidFrame
		}
		v = v<<1 | bit
	}
	return v, nil
}

// decode validates the checksum and converts the frame into physical
// units. It is a pure function: the same frame always produces the same
// measurement.
//
// The checksum is the wrapping 8-bit sum of the four data fields; the
// sensor's own arithmetic overflows silently, so ours must too.
// Humidity is the 16-bit big-endian value of fields 1..2 in 0.1 %RH.
// Temperature is sign-magnitude: the top bit of field 3 is the sign,
// the remaining 15 bits are the magnitude in 0.1 degC.
func decode(f Frame) (Measurement, error) {
	var fields [numFields]uint8
	for n := range fields {
		v, err := f.field(n)
		if err != nil {
			return Measurement{}, err
		}
		fields[n] = v
	}

	var sum uint8
	for _, b := range fields[:numFields-1] {
		sum += b
	}
	if got := fields[numFields-1]; sum != got {
		return Measurement{}, &ChecksumError{Want: sum, Got: got}
	}

	rawHumidity := uint16(fields[0])<<8 | uint16(fields[1])

	sign := 1.0
	if fields[2]&0x80 != 0 {
		sign = -1.0
	}
	rawTemperature := uint16(fields[2]&0x7F)<<8 | uint16(fields[3])

	return Measurement{
		Humidity:    RelHumidity(float64(rawHumidity) * 0.1),
		Temperature: TemperatureC(sign * float64(rawTemperature) * 0.1),
	}, nil
}
