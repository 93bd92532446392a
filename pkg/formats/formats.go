// Package formats provides encoders and decoders for point-cloud file formats.
//
// PCB is the binary container: a "PCB1" magic, a little-endian uint32 point
// count and fixed 19-byte records. XYZ is the legacy ASCII scan format with
// one "x y z intensity r g b" line per point.
package formats
