package memory

import "testing"

func TestLoadImageRoundTrip(t *testing.T) {
	m := NewRAM()
	img := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := LoadImage(m, 0x0100, img); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	for i, want := range img {
		if got := m.Read(0x0100 + uint16(i)); got != want {
			t.Errorf("byte %d: got %.2X want %.2X", i, got, want)
		}
	}
}

func TestLoadImageOverflow(t *testing.T) {
	m := NewRAM()
	if err := LoadImage(m, 0xFFFE, []byte{1, 2, 3}); err == nil {
		t.Error("expected an error loading an image past the end of the address space")
	}
}

func TestPowerOnZeroesMemory(t *testing.T) {
	m := NewRAM()
	m.Write(0x1234, 0x42)
	m.PowerOn()
	if got := m.Read(0x1234); got != 0 {
		t.Errorf("PowerOn left stale byte: got %.2X want 00", got)
	}
}
