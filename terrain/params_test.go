package terrain

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestToSoABytesLayoutOrder(t *testing.T) {
	SetIceShellBlockID(0) // disable the weather-coupled extra distribution's effect on the id under test
	p := &Params{
		Seed: 0xdeadbeef,
		Distributions: []BlockDistribution{
			{BlockID: 10, MinHeight: 0, MaxHeight: 10, Weight: 0.5},
			{BlockID: 20, MinHeight: 10, MaxHeight: 20, Weight: 0.5},
		},
		Weather:            WeatherSnow,
		WeatherIntensity:   IntensityHeavy,
		TemperatureCelsius: 15,
	}

	buf := p.ToSoABytes()

	// K=2 block ids first.
	if got := binary.LittleEndian.Uint32(buf[0:4]); got != 10 {
		t.Errorf("block_ids[0] = %d, want 10", got)
	}
	if got := binary.LittleEndian.Uint32(buf[4:8]); got != 20 {
		t.Errorf("block_ids[1] = %d, want 20", got)
	}

	// then K min_heights
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])); got != 0 {
		t.Errorf("min_heights[0] = %v, want 0", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])); got != 10 {
		t.Errorf("min_heights[1] = %v, want 10", got)
	}

	// then K max_heights
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[16:20])); got != 10 {
		t.Errorf("max_heights[0] = %v, want 10", got)
	}

	// then K weights
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28])); got != 0.5 {
		t.Errorf("weights[0] = %v, want 0.5", got)
	}

	off := 2 * 4 * 4
	if got := binary.LittleEndian.Uint64(buf[off : off+8]); got != 0xdeadbeef {
		t.Errorf("seed = %x, want deadbeef", got)
	}
	off += 8
	if got := binary.LittleEndian.Uint32(buf[off : off+4]); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	off += 4
	if buf[off] != byte(WeatherSnow) {
		t.Errorf("weather = %d, want %d", buf[off], WeatherSnow)
	}
	if buf[off+1] != byte(IntensityHeavy) {
		t.Errorf("weather intensity = %d, want %d", buf[off+1], IntensityHeavy)
	}
	off += 4
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4])); got != 15 {
		t.Errorf("temperature = %v, want 15", got)
	}
}

func TestIceShellAddedBelowFreezing(t *testing.T) {
	SetIceShellBlockID(99)
	p := &Params{
		Distributions:      []BlockDistribution{{BlockID: 1, MinHeight: 0, MaxHeight: 5, Weight: 1}},
		TemperatureCelsius: -5,
	}
	dists := p.effectiveDistributions()
	if len(dists) != 2 {
		t.Fatalf("expected an extra ice-shell distribution below freezing, got %d entries", len(dists))
	}
	if dists[len(dists)-1].BlockID != 99 {
		t.Errorf("ice-shell distribution should use the configured block id, got %d", dists[len(dists)-1].BlockID)
	}
}

func TestIceShellOmittedAboveFreezing(t *testing.T) {
	p := &Params{
		Distributions:      []BlockDistribution{{BlockID: 1, MinHeight: 0, MaxHeight: 5, Weight: 1}},
		TemperatureCelsius: 20,
	}
	if got := len(p.effectiveDistributions()); got != 1 {
		t.Errorf("expected no ice-shell distribution above freezing, got %d entries", got)
	}
}

func TestToSoABytesLengthMatchesDistributionCount(t *testing.T) {
	p := &Params{
		Distributions:      []BlockDistribution{{BlockID: 1}, {BlockID: 2}, {BlockID: 3}},
		TemperatureCelsius: 20,
	}
	buf := p.ToSoABytes()
	want := 3*4*4 + 8 + 4 + 4 + 4
	if len(buf) != want {
		t.Errorf("buffer length = %d, want %d", len(buf), want)
	}
}
