package models

import (
	"sort"
)

// LabelVolume represents a 3D segmentation label image, where each voxel
// holds a small non-negative integer identifying an anatomical structure.
type LabelVolume struct {
	// Data is the 3D label data as a 1D array in row-major order
	// (x varies fastest, then y, then z).
	Data []int32

	// Width is the width of the volume in voxels
	Width int

	// Height is the height of the volume in voxels
	Height int

	// Depth is the depth of the volume in voxels
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// At returns the label at the given voxel coordinates.
// Coordinates outside the volume return 0 (background).
func (v *LabelVolume) At(x, y, z int) int32 {
	if x < 0 || y < 0 || z < 0 || x >= v.Width || y >= v.Height || z >= v.Depth {
		return 0
	}
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// VoxelVolumeMM3 returns the physical volume of a single voxel in cubic millimeters.
func (v *LabelVolume) VoxelVolumeMM3() float64 {
	return v.VoxelSize.X * v.VoxelSize.Y * v.VoxelSize.Z
}

// Counts returns the number of voxels assigned to each nonzero label.
func (v *LabelVolume) Counts() map[int32]int {
	counts := make(map[int32]int)
	for _, label := range v.Data {
		if label != 0 {
			counts[label]++
		}
	}
	return counts
}

// Labels returns the sorted list of distinct nonzero labels present in the volume.
func (v *LabelVolume) Labels() []int32 {
	counts := v.Counts()
	labels := make([]int32, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// VoxelCount returns the number of voxels assigned to the given label.
func (v *LabelVolume) VoxelCount(label int32) int {
	count := 0
	for _, l := range v.Data {
		if l == label {
			count++
		}
	}
	return count
}

// VolumeMM3 returns the physical volume of the given label in cubic millimeters,
// computed from the voxel count and the voxel size.
func (v *LabelVolume) VolumeMM3(label int32) float64 {
	return float64(v.VoxelCount(label)) * v.VoxelVolumeMM3()
}
