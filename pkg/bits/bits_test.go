package bits

import "testing"

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {5, 0x10}, {8, 0x80}, {0, 0x00},
		{9, 0x00},
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestIsSet(t *testing.T) {
	val := byte(0b10100101)
	if !IsSet(val, 8) {
		t.Error("bit 8 should be set")
	}
	if IsSet(val, 7) {
		t.Error("bit 7 should not be set")
	}
	if !IsSet(val, 6) {
		t.Error("bit 6 should be set")
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"SM bits of CLA 0x0C", 0b0000_1100, 4, 3, 3},
		{"Tag number of 0x9F", 0x9F, 5, 1, 0x1F},
		{"Tag class of 0x5F", 0x5F, 8, 7, 1},
		{"Full byte", 0xAA, 8, 1, 0xAA},
		{"Inverted range", 0xFF, 1, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestSet(t *testing.T) {
	if got := Set(0, 6); got != 0x20 {
		t.Errorf("Set(0, 6) = 0x%02X; want 0x20", got)
	}
}

func TestNibbles(t *testing.T) {
	if High(0x4D) != 0x04 || Low(0x4D) != 0x0D {
		t.Errorf("nibbles of 0x4D = %X/%X", High(0x4D), Low(0x4D))
	}
}
