// Package delta implements the block-matching delta codec used to push file
// updates to fleet machines.
//
// The receiving side signs its current copy of a file with Sign, the sending
// side computes a Delta against the authoritative content with Compute, and
// the receiving side reconstructs the new content with Apply:
//
//	sig, _ := delta.Sign(base, delta.ChooseBlockSize(size))
//	d, _ := delta.Compute(sig, target)
//	_, err := delta.Apply(baseReaderAt, sig.Length, d, out)
//
// Weak checksums are the rsync rolling sum; strong hashes are BLAKE3-256.
package delta
