// Package nifti provides a minimal reader for NIfTI-1 label volumes, the
// compressed volumetric images produced by the external segmentation tool.
// It reads single-file (.nii / .nii.gz) images with integer or float32 voxel
// data and exposes them as label volumes; it is not a general NIfTI library.
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"slicersynthseg/internal/models"
)

// NIfTI-1 datatype codes supported by this reader.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtUint16  = 512
)

const headerSize = 348

// header is the fixed 348-byte NIfTI-1 header layout.
type header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// ReadFile reads a label volume from a .nii or .nii.gz file.
func ReadFile(path string) (*models.LabelVolume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read gzip stream from %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	vol, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return vol, nil
}

// Read reads a label volume from an uncompressed NIfTI-1 stream.
func Read(r io.Reader) (*models.LabelVolume, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("truncated header: %w", err)
	}

	// The header itself tells us the byte order: sizeof_hdr must decode to
	// 348 under the file's native endianness.
	var hdr header
	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if hdr.SizeofHdr != headerSize {
		order = binary.BigEndian
		if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
			return nil, fmt.Errorf("failed to decode header: %w", err)
		}
		if hdr.SizeofHdr != headerSize {
			return nil, fmt.Errorf("not a NIfTI-1 file: sizeof_hdr is %d, want %d", hdr.SizeofHdr, headerSize)
		}
	}

	magic := string(hdr.Magic[:3])
	switch magic {
	case "n+1":
		// Single-file image; voxel data follows in the same stream.
	case "ni1":
		return nil, fmt.Errorf("two-file NIfTI images (hdr/img pairs) are not supported")
	default:
		return nil, fmt.Errorf("not a NIfTI-1 file: bad magic %q", string(hdr.Magic[:]))
	}

	if hdr.Dim[0] < 3 {
		return nil, fmt.Errorf("expected a 3D volume, got %d dimensions", hdr.Dim[0])
	}
	for i := int16(4); i <= hdr.Dim[0]; i++ {
		if hdr.Dim[i] > 1 {
			return nil, fmt.Errorf("multi-volume images are not supported (dim[%d]=%d)", i, hdr.Dim[i])
		}
	}

	nx, ny, nz := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%d", nx, ny, nz)
	}

	// The datatype fixes the voxel width; bitpix merely restates it. A header
	// where the two disagree is corrupt and must be rejected, not indexed.
	var bytesPerVoxel int
	switch hdr.Datatype {
	case dtUint8:
		bytesPerVoxel = 1
	case dtInt16, dtUint16:
		bytesPerVoxel = 2
	case dtInt32, dtFloat32:
		bytesPerVoxel = 4
	default:
		return nil, fmt.Errorf("unsupported voxel datatype %d", hdr.Datatype)
	}
	if int(hdr.Bitpix) != bytesPerVoxel*8 {
		return nil, fmt.Errorf("header bitpix %d does not match datatype %d (want %d)",
			hdr.Bitpix, hdr.Datatype, bytesPerVoxel*8)
	}

	// vox_offset points at the start of the voxel data; anything between the
	// header and it is extension data we do not need.
	offset := int64(hdr.VoxOffset)
	if offset < headerSize {
		offset = headerSize + 4
	}
	if skip := offset - headerSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("truncated before voxel data: %w", err)
		}
	}

	n := nx * ny * nz
	data := make([]byte, n*bytesPerVoxel)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("truncated voxel data: %w", err)
	}

	vol := &models.LabelVolume{
		Data:   make([]int32, n),
		Width:  nx,
		Height: ny,
		Depth:  nz,
	}
	vol.VoxelSize.X = float64(hdr.Pixdim[1])
	vol.VoxelSize.Y = float64(hdr.Pixdim[2])
	vol.VoxelSize.Z = float64(hdr.Pixdim[3])

	switch hdr.Datatype {
	case dtUint8:
		for i := 0; i < n; i++ {
			vol.Data[i] = int32(data[i])
		}
	case dtInt16:
		for i := 0; i < n; i++ {
			vol.Data[i] = int32(int16(order.Uint16(data[i*2:])))
		}
	case dtUint16:
		for i := 0; i < n; i++ {
			vol.Data[i] = int32(order.Uint16(data[i*2:]))
		}
	case dtInt32:
		for i := 0; i < n; i++ {
			vol.Data[i] = int32(order.Uint32(data[i*4:]))
		}
	case dtFloat32:
		// Some tool versions write label maps as floats; round to the
		// nearest integer label.
		for i := 0; i < n; i++ {
			f := math.Float32frombits(order.Uint32(data[i*4:]))
			vol.Data[i] = int32(math.Round(float64(f)))
		}
	}

	return vol, nil
}
