package models

import (
	"reflect"
	"testing"
)

func testVolume() *LabelVolume {
	vol := &LabelVolume{
		Data:   []int32{0, 2, 2, 41, 0, 41, 41, 2},
		Width:  2,
		Height: 2,
		Depth:  2,
	}
	vol.VoxelSize.X = 1.0
	vol.VoxelSize.Y = 1.0
	vol.VoxelSize.Z = 2.5
	return vol
}

func TestAt(t *testing.T) {
	vol := testVolume()

	if got := vol.At(1, 0, 0); got != 2 {
		t.Errorf("At(1,0,0) = %d, want 2", got)
	}
	if got := vol.At(1, 1, 0); got != 41 {
		t.Errorf("At(1,1,0) = %d, want 41", got)
	}
	if got := vol.At(1, 1, 1); got != 2 {
		t.Errorf("At(1,1,1) = %d, want 2", got)
	}
}

// Coordinates outside the volume read as background, not a panic.
func TestAtOutOfBounds(t *testing.T) {
	vol := testVolume()

	for _, c := range [][3]int{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}, {2, 0, 0}, {0, 2, 0}, {0, 0, 2}} {
		if got := vol.At(c[0], c[1], c[2]); got != 0 {
			t.Errorf("At(%d,%d,%d) = %d, want 0", c[0], c[1], c[2], got)
		}
	}
}

func TestCounts(t *testing.T) {
	vol := testVolume()

	want := map[int32]int{2: 3, 41: 3}
	if got := vol.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
}

func TestLabels(t *testing.T) {
	vol := testVolume()

	want := []int32{2, 41}
	if got := vol.Labels(); !reflect.DeepEqual(got, want) {
		t.Errorf("Labels = %v, want %v", got, want)
	}
}

func TestVolumeMM3(t *testing.T) {
	vol := testVolume()

	if got := vol.VoxelVolumeMM3(); got != 2.5 {
		t.Errorf("VoxelVolumeMM3 = %v, want 2.5", got)
	}
	if got := vol.VoxelCount(2); got != 3 {
		t.Errorf("VoxelCount(2) = %d, want 3", got)
	}
	if got := vol.VolumeMM3(2); got != 7.5 {
		t.Errorf("VolumeMM3(2) = %v, want 7.5", got)
	}
	if got := vol.VolumeMM3(99); got != 0 {
		t.Errorf("VolumeMM3(99) = %v, want 0", got)
	}
}

func TestStructureName(t *testing.T) {
	tests := []struct {
		label int32
		want  string
	}{
		{0, "background"},
		{2, "left cerebral white matter"},
		{16, "brain-stem"},
		{53, "right hippocampus"},
		{999, "label 999"},
	}

	for _, tt := range tests {
		if got := StructureName(tt.label); got != tt.want {
			t.Errorf("StructureName(%d) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestKnownLabel(t *testing.T) {
	if !KnownLabel(17) {
		t.Error("KnownLabel(17) = false, want true")
	}
	if KnownLabel(999) {
		t.Error("KnownLabel(999) = true, want false")
	}
}
